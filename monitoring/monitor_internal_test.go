package monitoring

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pacer/device"
)

var _ = Describe("Monitor", func() {
	var (
		d      *device.Device
		m      *Monitor
		server *httptest.Server
	)

	BeforeEach(func() {
		d = device.MakeBuilder().
			WithName("Pacer").
			WithLine(device.NewLevelLine()).
			WithLevelDelivery().
			WithConfPort(0).
			Build()

		m = NewMonitor()
		m.RegisterDevice(d)

		server = httptest.NewServer(m.router())
	})

	AfterEach(func() {
		server.Close()
	})

	get := func(path string) (int, []byte) {
		rsp, err := http.Get(server.URL + path)
		Expect(err).NotTo(HaveOccurred())
		defer rsp.Body.Close()

		body, err := io.ReadAll(rsp.Body)
		Expect(err).NotTo(HaveOccurred())

		return rsp.StatusCode, body
	}

	It("should list registered devices", func() {
		code, body := get("/api/devices")

		Expect(code).To(Equal(http.StatusOK))
		Expect(string(body)).To(Equal(`["Pacer"]`))
	})

	It("should report the device status", func() {
		code, body := get("/api/status/Pacer")
		Expect(code).To(Equal(http.StatusOK))

		var rsp statusRsp
		Expect(json.Unmarshal(body, &rsp)).To(Succeed())

		Expect(rsp.Name).To(Equal("Pacer"))
		Expect(rsp.IRQStatus).To(Equal(uint32(0)))
		Expect(rsp.Interval).To(Equal(device.DefaultInterval))
		Expect(rsp.MessageDelivery).To(BeFalse())
	})

	It("should read registers through the device's decode path", func() {
		code, body := get("/api/register/Pacer/0x04")

		Expect(code).To(Equal(http.StatusOK))
		Expect(string(body)).To(Equal(
			`{"offset":4,"value":3735928559}`))
	})

	It("should report the sentinel for write-only registers", func() {
		code, body := get("/api/register/Pacer/0x30")

		Expect(code).To(Equal(http.StatusOK))
		Expect(string(body)).To(Equal(
			`{"offset":48,"value":4294967295}`))
	})

	It("should respond 404 for unknown devices", func() {
		code, _ := get("/api/status/NoSuchDevice")

		Expect(code).To(Equal(http.StatusNotFound))
	})

	It("should respond 400 for malformed offsets", func() {
		code, _ := get("/api/register/Pacer/bogus")

		Expect(code).To(Equal(http.StatusBadRequest))
	})
})
