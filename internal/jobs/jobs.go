package jobs

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/yuigahama/tsundoku/internal/backup"
)

// AutoBackupJob is the job id for the scheduled database snapshot.
const AutoBackupJob = "auto-backup"

// RegisterJobs registers all background tasks with the job manager.
func RegisterJobs(jm *JobManager) {
	jm.Register(AutoBackupJob, runAutoBackup)
}

// StartJobs starts the background job scheduler.
func StartJobs(app JobContext) {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	startAutoBackupJob(s, app)

	log.Println("Starting background job scheduler...")
	s.StartAsync()
}

func startAutoBackupJob(s *gocron.Scheduler, app JobContext) {
	interval := app.Config().Backup.IntervalHours
	if interval == 0 {
		log.Println("Backup interval is 0, scheduled backups are disabled.")
		return
	}

	log.Printf("Scheduling job: '%s' to run every %d hours.", AutoBackupJob, interval)

	_, err := s.Every(interval).Hours().Do(func() {
		log.Println("Scheduler is triggering job:", AutoBackupJob)
		// Submit the job to the manager instead of running it directly.
		// This prevents conflicts with manually triggered jobs.
		err := app.JobManager().RunJob(AutoBackupJob, app)
		if err != nil {
			log.Printf("Scheduled job '%s' could not start: %v", AutoBackupJob, err)
		}
	})
	if err != nil {
		log.Printf("Error scheduling '%s' job: %v", AutoBackupJob, err)
	}
}

func runAutoBackup(ctx JobContext) {
	cfg := ctx.Config()
	svc := backup.New(ctx.DB(), cfg.Backup.Path)

	path, err := svc.Snapshot(context.Background(), "auto")
	if err != nil {
		log.Printf("Scheduled backup failed: %v", err)
		ctx.JobManager().Fail(AutoBackupJob, err.Error())
		return
	}
	if err := svc.Prune(cfg.Backup.Keep); err != nil {
		log.Printf("Pruning old backups failed: %v", err)
	}

	ctx.WsHub().BroadcastJSON(map[string]string{
		"type": "backup_complete",
		"path": path,
	})
}
