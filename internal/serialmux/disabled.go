package serialmux

import (
	"context"
	"net/http"

	"github.com/banshee-data/intersection.report/internal/monitoring"
)

// DisabledSerialMux stands in when no detector is attached, so the API and
// debug pages still run. It never produces a line; commands are logged and
// discarded.
type DisabledSerialMux struct {
	hub *hub
}

func NewDisabledSerialMux() *DisabledSerialMux {
	return &DisabledSerialMux{hub: newHub(0)}
}

func (d *DisabledSerialMux) Subscribe() (string, chan string) { return d.hub.add(false) }

func (d *DisabledSerialMux) SubscribeLossless() (string, chan string) { return d.hub.add(true) }

func (d *DisabledSerialMux) Unsubscribe(id string) { d.hub.remove(id) }

func (d *DisabledSerialMux) SendCommand(command string) error {
	monitoring.Logf("serialmux: detector disabled, discarding command %q", command)
	return nil
}

// Monitor blocks until ctx ends.
func (d *DisabledSerialMux) Monitor(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (d *DisabledSerialMux) Status() map[string]any {
	return map[string]any{"disabled": true}
}

func (d *DisabledSerialMux) Close() error {
	d.hub.shutdown()
	return nil
}

func (d *DisabledSerialMux) AttachAdminRoutes(mux *http.ServeMux) {
	attachDetectorRoutes(mux, d, d.hub)
}
