// Package monitoring turns a running device into a web server so its state
// can be inspected from outside the process.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"time"

	// Enable profiling
	_ "net/http/pprof"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/pacer/device"
)

// Monitor can serve the state of devices over HTTP. It is read-only with
// respect to device semantics: there is no endpoint that forces a raise.
type Monitor struct {
	devices    []*device.Device
	portNumber int
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterDevice registers a device to be monitored.
func (m *Monitor) RegisterDevice(d *device.Device) {
	m.devices = append(m.devices, d)
}

func (m *Monitor) router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/devices", m.listDevices)
	r.HandleFunc("/api/status/{name}", m.deviceStatus)
	r.HandleFunc("/api/register/{name}/{offset}", m.readRegister)
	r.HandleFunc("/api/device/{name}", m.dumpDevice)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)

	return r
}

// StartServer starts the monitor as a web server with a custom port if
// wanted. It returns the address being served on.
func (m *Monitor) StartServer() string {
	r := m.router()

	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	addr := fmt.Sprintf("localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	fmt.Fprintf(os.Stderr, "Monitoring devices with http://%s\n", addr)

	go func() {
		err = http.Serve(listener, r)
		dieOnErr(err)
	}()

	return addr
}

func (m *Monitor) listDevices(w http.ResponseWriter, _ *http.Request) {
	fmt.Fprint(w, "[")
	for i, d := range m.devices {
		if i > 0 {
			fmt.Fprint(w, ",")
		}

		fmt.Fprintf(w, "%q", d.Name())
	}
	fmt.Fprint(w, "]")
}

type statusRsp struct {
	Name            string `json:"name"`
	ID              string `json:"id"`
	IRQStatus       uint32 `json:"irq_status"`
	Interval        uint32 `json:"interval"`
	MessageDelivery bool   `json:"message_delivery"`
}

func (m *Monitor) deviceStatus(w http.ResponseWriter, r *http.Request) {
	d := m.findDeviceOr404(w, mux.Vars(r)["name"])
	if d == nil {
		return
	}

	rsp := statusRsp{
		Name:            d.Name(),
		ID:              d.ID(),
		IRQStatus:       d.IRQStatus(),
		Interval:        d.Interval(),
		MessageDelivery: d.MessageDelivery(),
	}

	bytes, err := json.Marshal(rsp)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

// readRegister runs a read through the same decode path a bus access would
// take, so write-only and unknown offsets report the sentinel value.
func (m *Monitor) readRegister(w http.ResponseWriter, r *http.Request) {
	d := m.findDeviceOr404(w, mux.Vars(r)["name"])
	if d == nil {
		return
	}

	offset, err := strconv.ParseUint(mux.Vars(r)["offset"], 0, 64)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)
		return
	}

	val := d.MMIORead(offset, 4)
	fmt.Fprintf(w, "{\"offset\":%d,\"value\":%d}", offset, val)
}

func (m *Monitor) dumpDevice(w http.ResponseWriter, r *http.Request) {
	d := m.findDeviceOr404(w, mux.Vars(r)["name"])
	if d == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(d)
	serializer.SetMaxDepth(1)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	rsp := resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	}

	bytes, err := json.Marshal(rsp)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	dieOnErr(err)

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	bytes, err := json.Marshal(prof)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (m *Monitor) findDeviceOr404(
	w http.ResponseWriter,
	name string,
) *device.Device {
	var found *device.Device
	for _, d := range m.devices {
		if d.Name() == name {
			found = d
		}
	}

	if found == nil {
		w.WriteHeader(http.StatusNotFound)
		_, err := w.Write([]byte("Device not found"))
		dieOnErr(err)
	}

	return found
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
