package pyroscope

import (
	"context"
	"strings"

	"github.com/grafana/pyroscope-go"
	"github.com/kewsys/registry/internal/config"
	"github.com/kewsys/registry/internal/logger"
	"go.uber.org/fx"
)

type Service struct {
	cfg      *config.Configuration
	logger   *logger.Logger
	profiler *pyroscope.Profiler
}

// Module provides fx options for Pyroscope
func Module() fx.Option {
	return fx.Options(
		fx.Provide(NewPyroscopeService),
		fx.Invoke(RegisterHooks),
	)
}

// RegisterHooks starts the profiler with the app and stops it on shutdown
func RegisterHooks(lc fx.Lifecycle, svc *Service) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if !svc.cfg.Pyroscope.Enabled {
				svc.logger.Info("Pyroscope profiling is disabled")
				return nil
			}

			pc := svc.cfg.Pyroscope
			profileTypes := svc.getProfileTypes()
			pyroscopeConfig := pyroscope.Config{
				ApplicationName: pc.ApplicationName,
				ServerAddress:   pc.ServerAddress,
				ProfileTypes:    profileTypes,
				SampleRate:      pc.SampleRate,
				Tags:            pc.Tags,
				Logger:          svc,
			}
			if pc.BasicAuthUser != "" {
				pyroscopeConfig.BasicAuthUser = pc.BasicAuthUser
				pyroscopeConfig.BasicAuthPassword = pc.BasicAuthPass
			}

			profiler, err := pyroscope.Start(pyroscopeConfig)
			if err != nil {
				svc.logger.Errorw("failed to start pyroscope", "error", err)
				return err
			}
			svc.profiler = profiler
			svc.logger.Infow("pyroscope profiling started",
				"application_name", pc.ApplicationName,
				"server_address", pc.ServerAddress,
				"profile_types", len(profileTypes),
			)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if svc.profiler == nil {
				return nil
			}
			return svc.profiler.Stop()
		},
	})
}

func (s *Service) Debugf(format string, args ...interface{}) {
	s.logger.Debugf("[pyroscope] "+format, args...)
}

func (s *Service) Infof(format string, args ...interface{}) {
	s.logger.Infof("[pyroscope] "+format, args...)
}

func (s *Service) Errorf(format string, args ...interface{}) {
	s.logger.Errorf("[pyroscope] "+format, args...)
}

func NewPyroscopeService(cfg *config.Configuration, logger *logger.Logger) *Service {
	return &Service{
		cfg:    cfg,
		logger: logger,
	}
}

func (s *Service) IsEnabled() bool {
	return s != nil && s.cfg.Pyroscope.Enabled
}

func (s *Service) getProfileTypes() []pyroscope.ProfileType {
	if len(s.cfg.Pyroscope.ProfileTypes) == 0 {
		return []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileGoroutines,
		}
	}

	out := make([]pyroscope.ProfileType, 0, len(s.cfg.Pyroscope.ProfileTypes))
	for _, name := range s.cfg.Pyroscope.ProfileTypes {
		switch strings.ToLower(name) {
		case "cpu":
			out = append(out, pyroscope.ProfileCPU)
		case "inuse_objects":
			out = append(out, pyroscope.ProfileInuseObjects)
		case "alloc_objects":
			out = append(out, pyroscope.ProfileAllocObjects)
		case "inuse_space":
			out = append(out, pyroscope.ProfileInuseSpace)
		case "alloc_space":
			out = append(out, pyroscope.ProfileAllocSpace)
		case "goroutines":
			out = append(out, pyroscope.ProfileGoroutines)
		case "mutex_count":
			out = append(out, pyroscope.ProfileMutexCount)
		case "block_count":
			out = append(out, pyroscope.ProfileBlockCount)
		default:
			s.logger.Warnw("unknown pyroscope profile type", "type", name)
		}
	}
	return out
}

// TagWrapper runs fn with profiling labels, ex the registry entity a request targets
func (s *Service) TagWrapper(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	if !s.IsEnabled() {
		fn(ctx)
		return
	}

	pairs := make([]string, 0, len(labels)*2)
	for k, v := range labels {
		pairs = append(pairs, k, v)
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
}
