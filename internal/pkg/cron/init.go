package cron

import log "log/slog"

// InitCron 注册并启动客户端侧的周期任务（位置上报等）
func InitCron(mgr *Manager) error {
	if err := mgr.RegisterJobs(); err != nil {
		return err
	}
	mgr.Start()
	log.Info("客户端周期任务已启动")
	return nil
}
