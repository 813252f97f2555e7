package job

import (
	"Ripple/internal/service"
	"context"
	log "log/slog"
	"time"
)

// LocationProvider 平台定位能力的接缝，由宿主应用注入
type LocationProvider interface {
	Current(ctx context.Context) (latitude, longitude float64, err error)
}

// LocationReportJob 周期性上报当前位置，供附近的人功能使用
type LocationReportJob struct {
	nearby   service.NearbyService
	provider LocationProvider
}

func NewLocationReportJob(nearby service.NearbyService, provider LocationProvider) *LocationReportJob {
	return &LocationReportJob{nearby: nearby, provider: provider}
}

func (s *LocationReportJob) Run() {
	if s.provider == nil {
		log.Debug("未注入定位能力，跳过位置上报")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	lat, lng, err := s.provider.Current(ctx)
	if err != nil {
		log.Warn("获取当前位置失败", "err", err)
		return
	}

	if err = s.nearby.ReportLocation(ctx, lat, lng); err != nil {
		log.Warn("位置上报失败", "err", err)
		return
	}
	log.Info("位置上报成功")
}
