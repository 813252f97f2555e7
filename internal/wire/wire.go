package wire

import (
	"Ripple/internal/api/rest"
	"Ripple/internal/app/config"
	"Ripple/internal/job"
	"Ripple/internal/model"
	"Ripple/internal/pkg/cron"
	"Ripple/internal/pkg/ws"
	"Ripple/internal/repository"
	"Ripple/internal/service"

	"gorm.io/gorm"
)

// ApplicationContainer 封装了客户端运行所需的所有顶级组件
type ApplicationContainer struct {
	Transport     *ws.Manager
	Rest          *rest.Client
	Credentials   repository.CredentialRepo
	MessageCache  repository.MessageCacheRepo
	FriendService service.FriendService
	NearbyService service.NearbyService
	CronMgr       *cron.Manager

	cfg *config.Config
}

// BuildApplication 组装依赖。定位能力由宿主注入，可为 nil。
func BuildApplication(db *gorm.DB, cfg *config.Config, loc job.LocationProvider) (*ApplicationContainer, error) {
	credentialRepo := repository.NewCredentialRepo(db)
	messageCache := repository.NewMessageCacheRepo(db)

	restClient := rest.NewClient(cfg.Server, credentialRepo)
	transport := ws.NewManager(cfg.Transport)

	friendService := service.NewFriendService(restClient)
	nearbyService := service.NewNearbyService(restClient)

	locationJob := job.NewLocationReportJob(nearbyService, loc)
	cronMgr := cron.NewCronManager(locationJob, cfg.Location)

	return &ApplicationContainer{
		Transport:     transport,
		Rest:          restClient,
		Credentials:   credentialRepo,
		MessageCache:  messageCache,
		FriendService: friendService,
		NearbyService: nearbyService,
		CronMgr:       cronMgr,
		cfg:           cfg,
	}, nil
}

// OpenChat 为一个会话界面构造同步服务，返回后需调用 Open
func (c *ApplicationContainer) OpenChat(selfID, peerID string) service.ChatService {
	store := repository.NewMessageStore(model.DeriveConversationKey(selfID, peerID))
	return service.NewChatService(selfID, peerID, store, c.MessageCache, c.Rest, c.Transport, c.cfg.Chat)
}
