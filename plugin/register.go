package plugin

import (
	"fmt"
	"sync"

	"tablebridge/internal/logging"
	"tablebridge/internal/telemetry"
)

// RegistrationAdapter forwards plugins to a foreign Callback.
type RegistrationAdapter struct {
	callback Callback
}

func NewRegistrationAdapter(cb Callback) *RegistrationAdapter {
	return &RegistrationAdapter{callback: cb}
}

// Register instantiates p if it is a Factory and hands it to the callback.
// Registering the same plugin twice is not detected here.
func (r *RegistrationAdapter) Register(p any) error {
	err := r.register(p)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	telemetry.PluginRegistrations.WithLabelValues(outcome).Inc()
	return err
}

func (r *RegistrationAdapter) register(p any) error {
	switch f := p.(type) {
	case Factory:
		p = f()
	case func() any:
		p = f()
	}

	ot, ok := p.(ObjectType)
	if !ok {
		return fmt.Errorf("%w: %T", ErrUnsupportedPlugin, p)
	}
	info := jsPluginInfo(p)
	return r.callback.RegisterObjectType(ot.Name(), NewObjectTypeAdapter(ot), info)
}

func (r *RegistrationAdapter) String() string { return fmt.Sprint(r.callback) }

// jsPluginInfo extracts the optional UI asset descriptor. Any failure,
// including a panic in the plugin's accessors, yields an empty descriptor.
func jsPluginInfo(p any) (info map[string]string) {
	js, ok := p.(JSPlugin)
	if !ok {
		return map[string]string{}
	}
	defer func() {
		if rec := recover(); rec != nil {
			logging.With("plugin").Debug("js plugin info unavailable", "plugin", fmt.Sprintf("%T", p), "panic", rec)
			info = map[string]string{}
		}
	}()

	out := make(map[string]string, 4)
	for _, field := range []struct {
		key string
		get func() (string, error)
	}{
		{"name", js.JSName},
		{"main", js.JSMain},
		{"path", js.JSPath},
		{"version", js.JSVersion},
	} {
		v, err := field.get()
		if err != nil {
			logging.With("plugin").Debug("js plugin info unavailable", "plugin", fmt.Sprintf("%T", p), "field", field.key, "err", err)
			return map[string]string{}
		}
		out[field.key] = v
	}
	return out
}

/*──────── registry ───────*/

var (
	regMu sync.Mutex
	reg   []any
)

// Add queues a plugin (or Factory) for InitializeAllAndRegisterInto.
func Add(p any) {
	regMu.Lock()
	reg = append(reg, p)
	regMu.Unlock()
}

// InitializeAllAndRegisterInto registers every added plugin into cb, in the
// order they were added, and stops at the first failure.
func InitializeAllAndRegisterInto(cb Callback) error {
	regMu.Lock()
	plugins := append([]any(nil), reg...)
	regMu.Unlock()

	r := NewRegistrationAdapter(cb)
	for _, p := range plugins {
		if err := r.Register(p); err != nil {
			return err
		}
	}
	logging.With("plugin").Info("plugins registered", "count", len(plugins), "callback", r.String())
	return nil
}

func resetRegistry() {
	regMu.Lock()
	reg = nil
	regMu.Unlock()
}
