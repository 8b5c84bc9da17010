package metrics

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type (
	Client interface {
		Inc(ctx context.Context, key string, value any, attributes ...attribute.KeyValue)
		Record(ctx context.Context, key string, value float64, attributes ...attribute.KeyValue)
		Shutdown(ctx context.Context) error
	}

	// Descriptor defines metadata used when registering OTEL instruments.
	Descriptor struct {
		Description string
		Unit        string
	}

	ShutdownFunc func(ctx context.Context) error

	// OTelClient creates instruments lazily, one per key, on the given meter.
	OTelClient struct {
		meter       metric.Meter
		descriptors map[string]Descriptor
		shutdown    ShutdownFunc

		mu         sync.Mutex
		counters   map[string]metric.Int64Counter
		histograms map[string]metric.Float64Histogram
	}
)

var _ Client = (*OTelClient)(nil)

// NewOTelClient builds a client on meter. Descriptors are optional per key,
// and shutdown may be nil when the meter provider is owned elsewhere.
func NewOTelClient(meter metric.Meter, descriptors map[string]Descriptor, shutdown ShutdownFunc) *OTelClient {
	if descriptors == nil {
		descriptors = make(map[string]Descriptor)
	}

	return &OTelClient{
		meter:       meter,
		descriptors: descriptors,
		shutdown:    shutdown,
		counters:    make(map[string]metric.Int64Counter),
		histograms:  make(map[string]metric.Float64Histogram),
	}
}

// Inc adds value to the counter named key. Values that are not integers or
// floats are ignored; floats are truncated.
func (c *OTelClient) Inc(ctx context.Context, key string, value any, attributes ...attribute.KeyValue) {
	delta, ok := toInt64(value)
	if !ok {
		return
	}

	counter, err := c.counter(key)
	if err != nil {
		return
	}

	counter.Add(ctx, delta, metric.WithAttributes(attributes...))
}

func (c *OTelClient) Record(ctx context.Context, key string, value float64, attributes ...attribute.KeyValue) {
	histogram, err := c.histogram(key)
	if err != nil {
		return
	}

	histogram.Record(ctx, value, metric.WithAttributes(attributes...))
}

func (c *OTelClient) Shutdown(ctx context.Context) error {
	if c.shutdown == nil {
		return nil
	}

	return c.shutdown(ctx)
}

func (c *OTelClient) counter(key string) (metric.Int64Counter, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if counter, ok := c.counters[key]; ok {
		return counter, nil
	}

	counter, err := RegisterInt64Counter(c.meter, c.descriptors[key], key)
	if err != nil {
		return nil, err
	}

	c.counters[key] = counter

	return counter, nil
}

func (c *OTelClient) histogram(key string) (metric.Float64Histogram, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if histogram, ok := c.histograms[key]; ok {
		return histogram, nil
	}

	descriptor, ok := c.descriptors[key]
	if !ok {
		descriptor = Descriptor{Unit: "s"}
	}

	histogram, err := RegisterFloat64Histogram(c.meter, descriptor, key)
	if err != nil {
		return nil, err
	}

	c.histograms[key] = histogram

	return histogram, nil
}

func toInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		return int64(v), true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

// RegisterInt64Counter creates an Int64 counter using the provided descriptor map.
func RegisterInt64Counter(m metric.Meter, descriptor Descriptor, name string) (metric.Int64Counter, error) {
	counter, err := m.Int64Counter(
		name,
		metric.WithDescription(descriptor.Description),
		metric.WithUnit(descriptor.Unit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s counter: %w", name, err)
	}

	return counter, nil
}

// RegisterFloat64Histogram creates a Float64 histogram using the provided descriptor map.
func RegisterFloat64Histogram(m metric.Meter, descriptor Descriptor, name string) (metric.Float64Histogram, error) {
	histogram, err := m.Float64Histogram(
		name,
		metric.WithDescription(descriptor.Description),
		metric.WithUnit(descriptor.Unit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s histogram: %w", name, err)
	}

	return histogram, nil
}
