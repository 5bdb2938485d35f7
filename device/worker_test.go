package device

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	gomock "go.uber.org/mock/gomock"
)

var _ = Describe("Worker", func() {
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
			WithTimeScale(50*time.Millisecond, 5*time.Millisecond).
			Build()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should consume a pending signal without blocking", func() {
		d.Signal()

		Expect(d.waitForSignal()).To(BeTrue())
		Expect(d.pending).To(Equal(0))
	})

	It("should not lose a signal issued before the wait", func() {
		d.Signal()
		d.Signal()

		Expect(d.waitForSignal()).To(BeTrue())
		Expect(d.waitForSignal()).To(BeTrue())
		Expect(d.pending).To(Equal(0))
	})

	It("should wake up when a signal arrives", func() {
		woke := make(chan bool)
		go func() {
			woke <- d.waitForSignal()
		}()

		Consistently(woke).ShouldNot(Receive())

		d.Signal()

		Eventually(woke).Should(Receive(BeTrue()))
	})

	It("should report stop instead of consuming signals", func() {
		d.Signal()
		d.wakeMu.Lock()
		d.stopping = true
		d.wakeMu.Unlock()

		Expect(d.waitForSignal()).To(BeFalse())
	})

	It("should wake up when stop is requested", func() {
		woke := make(chan bool)
		go func() {
			woke <- d.waitForSignal()
		}()

		Consistently(woke).ShouldNot(Receive())

		d.wakeMu.Lock()
		d.stopping = true
		d.wakeCond.Broadcast()
		d.wakeMu.Unlock()

		Eventually(woke).Should(Receive(BeFalse()))
	})

	It("should sleep only the jitter when the interval is zero", func() {
		d.SetInterval(0)

		start := time.Now()
		Expect(d.sleep()).To(BeTrue())

		Expect(time.Since(start)).To(
			BeNumerically("<", 50*time.Millisecond))
	})

	It("should cut a sleep short when stop is requested", func() {
		d.SetInterval(10000)

		done := make(chan bool)
		go func() {
			done <- d.sleep()
		}()

		close(d.stopCh)

		Eventually(done).Should(Receive(BeFalse()))
	})

	It("should draw jitter below the bound", func() {
		for i := 0; i < 1000; i++ {
			j := d.jitter()
			Expect(j).To(And(
				BeNumerically(">=", 0),
				BeNumerically("<", 5*time.Millisecond),
			))
		}
	})

	It("should assert the cause and drive the line high", func() {
		line.EXPECT().SetLevel(true)

		d.raise(IRQCausePace)

		Expect(d.IRQStatus()).To(Equal(IRQCausePace))
	})

	It("should pulse under message delivery", func() {
		msgLine := NewMockLine(mockCtrl)
		msgDev := MakeBuilder().
			WithLine(msgLine).
			WithMessageDelivery().
			WithConfPort(0).
			Build()

		msgLine.EXPECT().Pulse()

		msgDev.raise(IRQCausePace)

		Expect(msgDev.IRQStatus()).To(Equal(IRQCausePace))
	})
})
