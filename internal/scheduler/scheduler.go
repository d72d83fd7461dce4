package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"

	"SignalEngine/internal/config"
	"SignalEngine/internal/model"
	"SignalEngine/internal/notifier"
	"SignalEngine/internal/recorder"
	"SignalEngine/internal/report"
	"SignalEngine/internal/screener"
)

// ErrBusy is returned when a run is requested while another is in progress.
var ErrBusy = errors.New("analysis already running")

// Notifier delivers messages; satisfied by *notifier.TelegramNotifier.
type Notifier interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler drives analysis runs from cron and chat commands and fans the results out
// to the recorder, the Excel exporter and the notifier.
type Scheduler struct {
	Cron     *cron.Cron
	Engine   *screener.Engine
	Recorder recorder.Recorder
	Exporter *report.Exporter
	Notifier Notifier // optional
	Tasks    []config.Task
	Ctx      context.Context

	mu      sync.Mutex // held by the run in progress
	running sync.WaitGroup
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, cfg *config.Config, engine *screener.Engine, rec recorder.Recorder, exp *report.Exporter, n Notifier) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Engine:   engine,
		Recorder: rec,
		Exporter: exp,
		Notifier: n,
		Tasks:    cfg.Tasks,
		Ctx:      ctx,
	}
}

// Register schedules a full analysis run on the given cron spec (with seconds).
func (s *Scheduler) Register(analysisCron string) error {
	if _, err := s.Cron.AddFunc(analysisCron, s.analysisJob); err != nil {
		return fmt.Errorf("register analysis task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler and waits for an in-flight run to return.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.running.Wait()
	log.Println("[INFO] scheduler stopped")
}

// RunNow executes every configured task immediately (manual trigger / RUN_ON_START).
func (s *Scheduler) RunNow() {
	s.analysisJob()
}

func (s *Scheduler) analysisJob() {
	if _, err := s.RunTasks(s.Ctx, nil); err != nil {
		log.Printf("[ERROR] analysis run: %v", err)
	}
}

// ResolveTasks maps task names to configured tasks; no names selects all of them.
func (s *Scheduler) ResolveTasks(names []string) ([]config.Task, error) {
	if len(names) == 0 {
		return s.Tasks, nil
	}
	tasks := make([]config.Task, 0, len(names))
	for _, name := range names {
		t, ok := s.task(name)
		if !ok {
			return nil, fmt.Errorf("unknown task %q", name)
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func (s *Scheduler) task(name string) (config.Task, bool) {
	for _, t := range s.Tasks {
		if strings.EqualFold(t.Name, name) {
			return t, true
		}
	}
	return config.Task{}, false
}

// RunTasks runs the named tasks (all when names is empty), records every run, exports
// the reports and sends one summary per task. Only one run is in progress at a time;
// a concurrent call returns ErrBusy.
func (s *Scheduler) RunTasks(ctx context.Context, names []string) ([]*screener.Result, error) {
	tasks, err := s.ResolveTasks(names)
	if err != nil {
		return nil, err
	}
	if !s.mu.TryLock() {
		return nil, ErrBusy
	}
	s.running.Add(1)
	defer func() {
		s.mu.Unlock()
		s.running.Done()
	}()

	log.Printf("[INFO] running %d analysis tasks", len(tasks))
	results, runErr := s.Engine.RunAll(ctx, tasks)

	reports := make([]*model.WideReport, 0, len(results))
	for _, res := range results {
		if err := s.Recorder.RecordRun(&res.Run, res.Report); err != nil {
			log.Printf("[ERROR] record run %s: %v", res.Run.Task, err)
		}
		reports = append(reports, res.Report)
		s.trySend(notifier.FormatRunSummary(&res.Run, res.Report))
	}

	if s.Exporter != nil {
		paths, err := s.Exporter.Export(reports)
		if err != nil {
			log.Printf("[ERROR] export reports: %v", err)
		}
		for _, p := range paths {
			log.Printf("[INFO] report saved: %s", p)
		}
		s.trySend(notifier.FormatExported(paths, s.Exporter.Now()))
	}
	return results, runErr
}

// HandleCommand processes a chat command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return s.help()
	}
	// Commands sent in groups carry the bot name: /run@SignalEngineBot.
	cmd, _, _ := strings.Cut(strings.ToLower(fields[0]), "@")
	args := fields[1:]

	switch cmd {
	case "/run":
		tasks, err := s.ResolveTasks(args)
		if err != nil {
			return "❌ " + err.Error()
		}
		go func() {
			if _, err := s.RunTasks(s.Ctx, args); err != nil {
				log.Printf("[ERROR] run command: %v", err)
				if errors.Is(err, ErrBusy) {
					s.trySend("⏳ An analysis run is already in progress.")
				}
			}
		}()
		return fmt.Sprintf("⏳ Started %d task(s).", len(tasks))
	case "/report":
		return s.latestReport(args)
	default:
		return s.help()
	}
}

func (s *Scheduler) latestReport(args []string) string {
	if len(args) == 0 {
		return "Usage: /report TASK [STOCK]"
	}
	t, ok := s.task(args[0])
	if !ok {
		return fmt.Sprintf("❌ unknown task %q", args[0])
	}
	run, rep, err := s.Recorder.LatestReport(t.Name)
	if errors.Is(err, recorder.ErrNoHistory) {
		return fmt.Sprintf("No stored report for %s yet.", t.Name)
	}
	if err != nil {
		log.Printf("[ERROR] load report %s: %v", t.Name, err)
		return "❌ could not load report"
	}
	if len(args) < 2 {
		return notifier.FormatRunSummary(run, rep)
	}
	for _, row := range rep.Rows {
		if strings.EqualFold(row.Stock, args[1]) {
			return notifier.FormatStockDetail(row)
		}
	}
	return fmt.Sprintf("%s is not in the latest %s report.", strings.ToUpper(args[1]), t.Name)
}

func (s *Scheduler) help() string {
	names := make([]string, len(s.Tasks))
	for i, t := range s.Tasks {
		names[i] = t.Name
	}
	return notifier.FormatHelp(names)
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil || text == "" {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}
