package cron

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/caarlos0/env/v6"
	cronv3 "github.com/robfig/cron/v3"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/leaderelection"
	"k8s.io/client-go/tools/leaderelection/resourcelock"

	cron_config "github.com/relocato/mailbridge/internal/cron/config"
	"github.com/relocato/mailbridge/internal/logger"
	"github.com/relocato/mailbridge/internal/tracing"
	"github.com/relocato/mailbridge/internal/utils"
	"github.com/relocato/mailbridge/services"
)

// CONSTANTS
const (
	// GroupSync serializes the scheduled sync jobs
	GroupSync = "sync"

	// LeaseDuration is how long a lease lasts before needing renewal
	LeaseDuration = 15 * time.Second
	// RenewDeadline is how long a leader has to renew its lease
	RenewDeadline = 10 * time.Second
	// RetryPeriod is how long to wait between leadership attempts
	RetryPeriod = 2 * time.Second
)

// LOCK MANAGEMENT
var jobLocks = struct {
	sync.Mutex
	locks map[string]*sync.Mutex
}{
	locks: map[string]*sync.Mutex{
		GroupSync: new(sync.Mutex),
	},
}

type CronManager struct {
	log      logger.Logger
	cron     *cronv3.Cron
	k8s      kubernetes.Interface
	services *services.Services
	stopCh   chan struct{}
	jobIDs   map[string]cronv3.EntryID
}

func NewCronManager(log logger.Logger, k8s kubernetes.Interface, s *services.Services) *CronManager {
	return &CronManager{
		log:      log,
		k8s:      k8s,
		services: s,
		stopCh:   make(chan struct{}),
		jobIDs:   make(map[string]cronv3.EntryID),
	}
}

// Start initializes and starts the cron manager with leader election
// If k8s is nil, it will start in local mode without leader election
func (cm *CronManager) Start(podName, namespace string) error {
	if cm.k8s == nil || os.Getenv("LOCAL_DEV") == "true" {
		cm.log.Info("Starting cron manager in local mode")
		cm.StartCron()
		return nil
	}

	lock := &resourcelock.LeaseLock{
		LeaseMeta: metav1.ObjectMeta{
			Name:      "mailbridge-cron-leader",
			Namespace: namespace,
		},
		Client: cm.k8s.CoordinationV1(),
		LockConfig: resourcelock.ResourceLockConfig{
			Identity: podName,
		},
	}

	errCh := make(chan error, 1)

	go func() {
		le, err := leaderelection.NewLeaderElector(leaderelection.LeaderElectionConfig{
			Lock:            lock,
			ReleaseOnCancel: true,
			LeaseDuration:   LeaseDuration,
			RenewDeadline:   RenewDeadline,
			RetryPeriod:     RetryPeriod,
			Callbacks: leaderelection.LeaderCallbacks{
				OnStartedLeading: func(ctx context.Context) {
					cm.StartCron()
				},
				OnStoppedLeading: func() {
					cm.log.Info("Leader lost - stopping crons")
					cm.Stop()
				},
				OnNewLeader: func(identity string) {
					cm.log.Infof("New leader elected: %s", identity)
				},
			},
		})
		if err != nil {
			errCh <- err
			return
		}

		ctx := context.Background()
		le.Run(ctx)
	}()

	// Wait briefly to see if leader election fails immediately
	select {
	case err := <-errCh:
		cm.log.Warnf("Leader election failed, falling back to local mode: %v", err)
		cm.StartCron()
	case <-time.After(5 * time.Second):
	}

	return nil
}

// Stop gracefully stops the cron manager
func (cm *CronManager) Stop() {
	if cm.cron != nil {
		cm.log.Info("Stopping cron manager")
		ctx := cm.cron.Stop()
		<-ctx.Done()
	}
	close(cm.stopCh)
}

// StartCron initializes and starts the cron scheduler
func (cm *CronManager) StartCron() {
	cm.log.Info("Starting cron manager")
	cronOptions := []cronv3.Option{
		cronv3.WithSeconds(),
		cronv3.WithChain(
			cronv3.SkipIfStillRunning(cronv3.DefaultLogger),
			cronv3.Recover(cronv3.DefaultLogger),
		),
	}
	c := cronv3.New(cronOptions...)
	cm.registerJobs(c)
	c.Start()
	cm.cron = c
}

// registerJobs adds all cron jobs to the scheduler
func (cm *CronManager) registerJobs(c *cronv3.Cron) {
	var cronConfig cron_config.Config
	if err := env.Parse(&cronConfig); err != nil {
		cm.log.Fatalf("Failed to parse cron config from environment: %v", err)
	}

	if cronConfig.CronScheduleHeartbeat != "" {
		podName := os.Getenv("POD_NAME")
		if podName == "" {
			podName = "local"
		}
		id, err := c.AddFunc(cronConfig.CronScheduleHeartbeat, func() {
			defer tracing.RecoverAndLogToJaeger(cm.log)
			cm.log.Infof("Cron heartbeat from pod: %s", podName)
		})
		if err != nil {
			cm.log.Fatalf("Could not add heartbeat cron job: %v", err)
		}
		cm.jobIDs["heartbeat"] = id
		cm.log.Infof("Registered heartbeat job with schedule: %s", cronConfig.CronScheduleHeartbeat)
	}

	if cronConfig.CronScheduleHealthRefresh != "" {
		id, err := c.AddFunc(cronConfig.CronScheduleHealthRefresh, func() {
			defer tracing.RecoverAndLogToJaeger(cm.log)
			cm.refreshHealth()
		})
		if err != nil {
			cm.log.Fatalf("Could not add health refresh cron job: %v", err)
		}
		cm.jobIDs["health_refresh"] = id
		cm.log.Infof("Registered health refresh job with schedule: %s", cronConfig.CronScheduleHealthRefresh)
	}

	if cronConfig.CronScheduleFolderSync != "" && cronConfig.SyncOwnerID != "" {
		id, err := c.AddFunc(cronConfig.CronScheduleFolderSync, func() {
			defer tracing.RecoverAndLogToJaeger(cm.log)
			jobLocks.locks[GroupSync].Lock()
			defer jobLocks.locks[GroupSync].Unlock()
			cm.syncFolders(cronConfig.SyncOwnerID, cronConfig.SyncFolders)
		})
		if err != nil {
			cm.log.Fatalf("Could not add folder sync cron job: %v", err)
		}
		cm.jobIDs["folder_sync"] = id
		cm.log.Infof("Registered folder sync job with schedule: %s", cronConfig.CronScheduleFolderSync)
	}
}

func (cm *CronManager) refreshHealth() {
	ctx := context.Background()

	span, ctx := tracing.StartTracerSpan(ctx, "CronManager.refreshHealth")
	defer span.Finish()
	tracing.TagComponentCronJob(span)

	status := cm.services.HealthService.Refresh(ctx)
	if !status.Inbound.OK || !status.Outbound.OK {
		cm.log.Warnf("Health refresh found degraded paths (inbound: %v, outbound: %v)",
			status.Inbound.OK, status.Outbound.OK)
	}
}

func (cm *CronManager) syncFolders(ownerID string, folders []string) {
	cm.log.Infof("Running scheduled sync for %d folders", len(folders))

	ctx := context.Background()
	ctx = utils.SetOwnerIdInContext(ctx, ownerID)

	span, ctx := tracing.StartTracerSpan(ctx, "CronManager.syncFolders")
	defer span.Finish()
	tracing.TagComponentCronJob(span)
	tracing.TagOwner(span, ownerID)

	for _, folder := range folders {
		result, err := cm.services.SyncService.SyncFolder(ctx, ownerID, folder, false)
		if err != nil {
			tracing.TraceErr(span, err)
			cm.log.Errorf("Scheduled sync of %s failed: %v", folder, err)
			continue
		}
		cm.log.Infof("Scheduled sync of %s wrote %d, skipped %d", folder, result.Written, result.Skipped)
	}
}
