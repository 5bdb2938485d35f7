package device

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	gomock "go.uber.org/mock/gomock"
)

var _ = Describe("Register Interface", func() {
	var (
		mockCtrl *gomock.Controller
		line     *MockLine
		d        *Device
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		line = NewMockLine(mockCtrl)
		d = MakeBuilder().
			WithLine(line).
			WithLevelDelivery().
			WithConfPort(0).
			Build()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should read the identification register", func() {
		Expect(d.MMIORead(RegID, 4)).To(Equal(IDValue))
	})

	It("should read the liveness register", func() {
		Expect(d.MMIORead(RegLiveness, 4)).To(Equal(LivenessValue))
	})

	It("should read an empty interrupt status initially", func() {
		Expect(d.MMIORead(RegIRQStatus, 4)).To(Equal(uint32(0)))
	})

	It("should return the sentinel for misaligned reads", func() {
		Expect(d.MMIORead(0x02, 4)).To(Equal(InvalidRead))
	})

	It("should return the sentinel for reads that are not 4 bytes", func() {
		Expect(d.MMIORead(RegID, 2)).To(Equal(InvalidRead))
	})

	It("should return the sentinel for write-only registers", func() {
		Expect(d.MMIORead(RegStart, 4)).To(Equal(InvalidRead))
		Expect(d.MMIORead(RegScheduleNext, 4)).To(Equal(InvalidRead))
		Expect(d.MMIORead(RegIRQAck, 4)).To(Equal(InvalidRead))
	})

	It("should count a start write as a pending signal", func() {
		d.MMIOWrite(RegStart, 1, 4)

		Expect(d.pending).To(Equal(1))
		Expect(d.stopping).To(BeFalse())
	})

	It("should count a schedule-next write as a pending signal", func() {
		d.MMIOWrite(RegScheduleNext, 1, 4)

		Expect(d.pending).To(Equal(1))
	})

	It("should ignore writes that are not 4 bytes", func() {
		d.MMIOWrite(RegStart, 1, 2)

		Expect(d.pending).To(Equal(0))
	})

	It("should ignore misaligned writes", func() {
		d.MMIOWrite(RegStart+1, 1, 4)

		Expect(d.pending).To(Equal(0))
	})

	It("should keep the raise register inert", func() {
		d.MMIOWrite(RegIRQRaise, 0x1, 4)

		Expect(d.MMIORead(RegIRQStatus, 4)).To(Equal(uint32(0)))
	})

	It("should clear acknowledged causes and withdraw the line", func() {
		d.irqStatus = 0x3
		line.EXPECT().SetLevel(false)

		d.MMIOWrite(RegIRQAck, 0x3, 4)

		Expect(d.MMIORead(RegIRQStatus, 4)).To(Equal(uint32(0)))
	})

	It("should keep the line asserted while causes remain", func() {
		d.irqStatus = 0x3

		d.MMIOWrite(RegIRQAck, 0x1, 4)

		Expect(d.MMIORead(RegIRQStatus, 4)).To(Equal(uint32(0x2)))
	})

	It("should treat acknowledging unset bits as a no-op", func() {
		d.irqStatus = 0x1

		d.MMIOWrite(RegIRQAck, 0x2, 4)

		Expect(d.MMIORead(RegIRQStatus, 4)).To(Equal(uint32(0x1)))
	})

	It("should not withdraw anything under message delivery", func() {
		msgLine := NewMockLine(mockCtrl)
		msgDev := MakeBuilder().
			WithLine(msgLine).
			WithMessageDelivery().
			WithConfPort(0).
			Build()
		msgDev.irqStatus = 0x1

		msgDev.MMIOWrite(RegIRQAck, 0x1, 4)

		Expect(msgDev.MMIORead(RegIRQStatus, 4)).To(Equal(uint32(0)))
	})
})
