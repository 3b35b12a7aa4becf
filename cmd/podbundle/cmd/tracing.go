package cmd

import (
	"io"
	"os"

	"github.com/opentracing/opentracing-go"
	"github.com/oneconcern/podbundle/pkg/errors"
	"github.com/uber/jaeger-client-go"
	jaegercfg "github.com/uber/jaeger-client-go/config"
	jaegerzap "github.com/uber/jaeger-client-go/log/zap"
	"go.uber.org/zap"
)

const serviceName = "podbundle"

// newTracer configures a jaeger tracer from the JAEGER_* environment and installs it as the global tracer.
// Every span is sampled unless JAEGER_SAMPLER_TYPE says otherwise.
func newTracer(l *zap.Logger) (io.Closer, error) {
	cfg, err := jaegercfg.FromEnv()
	if err != nil {
		return nil, errors.New("invalid jaeger configuration").Wrap(err)
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = serviceName
	}
	if os.Getenv("JAEGER_SAMPLER_TYPE") == "" {
		cfg.Sampler.Type = jaeger.SamplerTypeConst
		cfg.Sampler.Param = 1
	}

	tracer, closer, err := cfg.NewTracer(jaegercfg.Logger(jaegerzap.NewLogger(l)))
	if err != nil {
		return nil, errors.New("cannot create tracer").Wrap(err)
	}
	opentracing.SetGlobalTracer(tracer)
	l.Info("tracing enabled", zap.String("service", cfg.ServiceName))
	return closer, nil
}
