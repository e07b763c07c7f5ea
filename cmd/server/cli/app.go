package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/Mieluoxxx/siriusx-sms-validator/internal/config"
	"github.com/Mieluoxxx/siriusx-sms-validator/internal/db"
	"github.com/Mieluoxxx/siriusx-sms-validator/internal/events"
	"github.com/Mieluoxxx/siriusx-sms-validator/internal/logger"
	"github.com/Mieluoxxx/siriusx-sms-validator/internal/sms"
	"github.com/Mieluoxxx/siriusx-sms-validator/internal/smstoken"
	"github.com/Mieluoxxx/siriusx-sms-validator/internal/stats"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// app 命令共享的依赖
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	db      *gorm.DB
	events  *events.Service
	stats   *stats.TokenStats
	service *smstoken.Service
	cleanup []func()
}

// errDeliveryDisabled 不发送短信的命令使用的占位通道
var errDeliveryDisabled = errors.New("sms delivery is disabled for this command")

// appOptions 命令按需装配的依赖
type appOptions struct {
	sender bool // 是否连接短信通道，只有 serve 需要
}

func disabledSender() sms.Sender {
	return sms.SenderFunc(func(context.Context, string, string, map[string]interface{}, ...sms.RelatedObject) (*sms.DeliveryResult, error) {
		return nil, errDeliveryDisabled
	})
}

// newApp 加载配置并装配依赖
func newApp(configPath string, opts appOptions) (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Server.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &app{cfg: cfg, logger: log}
	a.cleanup = append(a.cleanup, func() { _ = log.Sync() })

	database, err := db.InitDatabase(&cfg.Database, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.db = database
	a.cleanup = append(a.cleanup, func() { _ = db.CloseDatabase(database) })

	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(database); err != nil {
			a.Close()
			return nil, err
		}
	}

	sender := disabledSender()
	if opts.sender {
		var closeSender func()
		sender, closeSender, err = sms.NewSender(cfg, sms.NewTemplates(), log)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.cleanup = append(a.cleanup, closeSender)
	}

	a.events = events.NewService(database, log)
	a.stats = stats.NewTokenStats(0)
	a.service, err = smstoken.NewService(smstoken.NewRepository(database), sender, cfg.Validator,
		smstoken.WithLogger(log),
		smstoken.WithEventRecorder(a.events),
		smstoken.WithStats(a.stats),
		smstoken.WithDefaultTemplate(cfg.SMS.DefaultTemplate),
	)
	if err != nil {
		a.Close()
		return nil, err
	}

	return a, nil
}

// Close 按创建的逆序释放资源
func (a *app) Close() {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i]()
	}
	a.cleanup = nil
}
