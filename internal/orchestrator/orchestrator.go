// Package orchestrator implements the job state machine and scene
// fan-out described in spec.md §4.6: a strict-priority queue feeding a
// pool of workers, each driving one job through
// Upload -> Script -> Assets -> Compose -> Done. Scene fan-out is
// generalized from the teacher's internal/worker/worker.go
// handleProcessClip, which ran a two-task errgroup per clip (image+video
// pipeline concurrent with audio+transcript pipeline); here every scene
// runs its own two-task (audio, visual) fan-out concurrently with every
// other scene, and per-scene failures are captured rather than
// propagated, since spec.md tolerates partial failure.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bobarin/scenecast/internal/breaker"
	"github.com/bobarin/scenecast/internal/cache"
	"github.com/bobarin/scenecast/internal/extract"
	"github.com/bobarin/scenecast/internal/fingerprint"
	"github.com/bobarin/scenecast/internal/llm"
	"github.com/bobarin/scenecast/internal/models"
	"github.com/bobarin/scenecast/internal/resource"
	"github.com/bobarin/scenecast/internal/retry"
	"github.com/bobarin/scenecast/internal/store"
	"github.com/bobarin/scenecast/internal/tts"
)

// TTSClient synthesizes narration audio for a scene; satisfied by
// internal/tts.Client.
type TTSClient interface {
	Synthesize(ctx context.Context, text, voice string) (*tts.Result, error)
}

// VisualRenderer renders and persists the visual asset for a scene;
// satisfied by internal/visual.Router.
type VisualRenderer interface {
	Render(ctx context.Context, jobID string, scene *models.Scene) (*models.VisualAsset, error)
}

// Composer composes a job's completed scenes into a final video;
// satisfied by internal/compose.Composer.
type Composer interface {
	Compose(ctx context.Context, jobID string, scenes []*models.Scene, outputPath string) (*models.Video, error)
}

// LLMClient generates a script from source text; satisfied by
// internal/llm.Client.
type LLMClient interface {
	GenerateScript(ctx context.Context, sourceText string) (*models.Script, error)
}

// Config tunes the orchestrator's worker pool and output layout.
type Config struct {
	Workers       int
	OutputDir     string
	DefaultVoice  string
	AudioTimeout  time.Duration
}

// Orchestrator owns the pending-job queue, the job store, and the
// per-stage collaborators. Run spins up the configured worker pool. The
// LLM and TTS calls are wrapped in the same cache -> breaker -> retry
// stack internal/visual/router.go applies to visual rendering, per
// spec.md §4.6.
type Orchestrator struct {
	queue    *Queue
	jobStore *store.Store
	governor *resource.Governor

	llmClient LLMClient
	tts       TTSClient
	visual    VisualRenderer
	composer  Composer

	assetCache  *cache.Cache
	breakers    *breaker.Manager
	retryPolicy retry.Policy

	cfg Config

	mu      sync.Mutex
	cancels map[uuid.UUID]context.CancelFunc
}

// New builds an Orchestrator. The caller is responsible for starting
// Run in a goroutine.
func New(
	jobStore *store.Store,
	governor *resource.Governor,
	llmClient LLMClient,
	ttsClient TTSClient,
	visualRenderer VisualRenderer,
	composer Composer,
	assetCache *cache.Cache,
	breakers *breaker.Manager,
	retryPolicy retry.Policy,
	cfg Config,
) *Orchestrator {
	return &Orchestrator{
		queue:       NewQueue(),
		jobStore:    jobStore,
		governor:    governor,
		llmClient:   llmClient,
		tts:         ttsClient,
		visual:      visualRenderer,
		composer:    composer,
		assetCache:  assetCache,
		breakers:    breakers,
		retryPolicy: retryPolicy,
		cfg:         cfg,
		cancels:     make(map[uuid.UUID]context.CancelFunc),
	}
}

// Submit validates and enqueues a new job for the given source document.
func (o *Orchestrator) Submit(source models.SourceRef, priority models.Priority) (*models.Job, error) {
	if source.Path == "" {
		return nil, fmt.Errorf("%w: source path is required", ErrValidation)
	}

	job := models.NewJob(source, priority)
	o.jobStore.Put(job)
	o.queue.Push(job.ID, priority)
	return job, nil
}

// Status returns a point-in-time snapshot of a job.
func (o *Orchestrator) Status(id uuid.UUID) (models.Job, error) {
	job, err := o.jobStore.Get(id)
	if err != nil {
		return models.Job{}, err
	}
	return job.Snapshot(), nil
}

// List returns every known job, newest first.
func (o *Orchestrator) List() []models.Job {
	return o.jobStore.List()
}

// Cancel marks a pending-or-processing job cancelled. Pending jobs are
// simply dequeued; processing jobs have their context cancelled so the
// in-flight scene fan-out unwinds at its next checkpoint.
func (o *Orchestrator) Cancel(id uuid.UUID) error {
	job, err := o.jobStore.Get(id)
	if err != nil {
		return err
	}
	snap := job.Snapshot()
	if snap.Status.Terminal() {
		return nil
	}

	o.queue.Remove(id)

	o.mu.Lock()
	cancel, running := o.cancels[id]
	o.mu.Unlock()
	if running {
		cancel()
	}

	job.Finish(models.JobStatusCancelled, "cancelled by request")
	return nil
}

// Run starts Config.Workers goroutines pulling from the queue until ctx
// is done.
func (o *Orchestrator) Run(ctx context.Context) {
	workers := o.cfg.Workers
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			o.workerLoop(ctx, id)
		}(i)
	}
	wg.Wait()
}

func (o *Orchestrator) workerLoop(ctx context.Context, workerID int) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		jobID, ok := o.queue.Pop()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-o.queue.Notify():
				continue
			case <-time.After(time.Second):
				continue
			}
		}

		job, err := o.jobStore.Get(jobID)
		if err != nil {
			log.Printf("orchestrator[worker %d]: job %s vanished from store: %v", workerID, jobID, err)
			continue
		}
		o.processJob(ctx, job)
	}
}

func (o *Orchestrator) processJob(ctx context.Context, job *models.Job) {
	release, err := o.governor.Acquire(ctx, resource.KindJob)
	if err != nil {
		job.AddError(models.ErrKindResource, "", err.Error())
		return
	}
	defer release()

	jobCtx, cancel := context.WithCancel(ctx)
	o.mu.Lock()
	o.cancels[job.ID] = cancel
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		delete(o.cancels, job.ID)
		o.mu.Unlock()
		cancel()
	}()

	job.Start()
	job.Advance(models.PhaseUpload, 5, "extracting source text")

	if err := o.runPipeline(jobCtx, job); err != nil {
		if jobCtx.Err() != nil {
			// Already marked cancelled by Cancel(); nothing further to do.
			return
		}
		job.AddError(models.ErrKindFatal, "", err.Error())
		job.Finish(models.JobStatusFailed, err.Error())
	}
}

// runPipeline drives a job through extract -> script -> assets -> compose.
// Every terminal Finish call is guarded by a ctx.Err() check first: once
// Cancel has cancelled the job's context, the pipeline must not overwrite
// the cancellation with a failed/completed/partial status of its own —
// Finish's own terminal-state guard would otherwise make that a race
// between whichever call lands first.
func (o *Orchestrator) runPipeline(ctx context.Context, job *models.Job) error {
	text, err := extract.Text(job.Source.Path)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("extract: %w", err)
	}

	job.Advance(models.PhaseScript, 10, "generating script")
	script, err := o.generateScript(ctx, text)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		log.Printf("orchestrator: job %s: llm script generation failed, using fallback: %v", job.ID, err)
		script = llm.Fallback(text)
	}
	job.SetScript(script)

	job.Advance(models.PhaseAssets, 15, "generating scene assets")
	if err := o.generateAssets(ctx, job, script); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	if ctx.Err() != nil {
		return nil
	}

	completed := completedScenes(script.Scenes)
	if len(completed) == 0 {
		job.Finish(models.JobStatusFailed, "no scenes completed asset generation")
		return nil
	}

	job.Advance(models.PhaseCompose, 90, "composing video")
	outputPath := filepath.Join(o.cfg.OutputDir, job.ID.String(), "video.mp4")
	video, err := o.composer.Compose(ctx, job.ID.String(), completed, outputPath)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		job.Finish(models.JobStatusFailed, fmt.Sprintf("compose failed: %v", err))
		return nil
	}
	job.SetVideo(video)
	if ctx.Err() != nil {
		return nil
	}

	if len(completed) == len(script.Scenes) {
		job.Finish(models.JobStatusCompleted, "done")
	} else {
		job.Finish(models.JobStatusPartial, fmt.Sprintf("%d/%d scenes completed", len(completed), len(script.Scenes)))
	}
	return nil
}

// generateScript produces a Script for sourceText via
// cache -> circuit breaker -> retry -> raw LLM call, per spec.md §4.6.
// The cache key is the source text's fingerprint, so submitting the same
// document twice (scenario S6) never issues a second LLM call.
func (o *Orchestrator) generateScript(ctx context.Context, sourceText string) (*models.Script, error) {
	key := fingerprint.Key("script", sourceText)

	data, err := o.assetCache.GetOrCompute(ctx, cache.NamespaceScript, key, func(ctx context.Context) ([]byte, error) {
		var script *models.Script
		callErr := o.breakers.Call(ctx, "llm", func(ctx context.Context) error {
			return retry.Do(ctx, o.retryPolicy, func(ctx context.Context) error {
				s, genErr := o.llmClient.GenerateScript(ctx, sourceText)
				if genErr != nil {
					return genErr
				}
				script = s
				return nil
			})
		})
		if callErr != nil {
			return nil, callErr
		}
		return json.Marshal(script)
	})
	if err != nil {
		return nil, err
	}

	var script models.Script
	if err := json.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("llm: decode cached script: %w", err)
	}
	return &script, nil
}

// generateAssets fans out audio+visual generation across every scene
// concurrently; within a scene, audio and visual generation run
// concurrently too. Scene-level failures are recorded on the job and the
// scene is marked failed rather than aborting the whole job, per
// spec.md's partial-failure tolerance. The progress formula (completed
// scene-assets / total scene-assets * 90%, reserving the final 10% for
// compose) follows the pack's infinitetalk-api job service.
func (o *Orchestrator) generateAssets(ctx context.Context, job *models.Job, script *models.Script) error {
	viable := make([]*models.Scene, 0, len(script.Scenes))
	for _, scene := range script.Scenes {
		if scene.Status == models.SceneStatusFailed {
			job.AddError(models.ErrKindValidation, scene.ID, "narration length outside allowed bounds, skipping asset generation")
			continue
		}
		viable = append(viable, scene)
	}

	totalAssets := len(viable) * 2
	if totalAssets == 0 {
		return nil
	}
	var completedAssets int32
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, scene := range viable {
		scene := scene
		g.Go(func() error {
			o.generateScene(gctx, job, scene, &completedAssets, &mu, totalAssets)
			return nil
		})
	}
	return g.Wait()
}

func (o *Orchestrator) generateScene(
	ctx context.Context,
	job *models.Job,
	scene *models.Scene,
	completedAssets *int32,
	mu *sync.Mutex,
	totalAssets int,
) {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		asset, err := o.synthesizeAudio(ctx, scene)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			job.AddError(models.ErrKindUpstream, scene.ID, fmt.Sprintf("audio: %v", err))
			scene.Status = models.SceneStatusFailed
			return
		}
		scene.Audio = asset
		o.bumpProgress(job, completedAssets, totalAssets)
	}()

	go func() {
		defer wg.Done()
		asset, err := o.visual.Render(ctx, job.ID.String(), scene)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			job.AddError(models.ErrKindUpstream, scene.ID, fmt.Sprintf("visual: %v", err))
			scene.Status = models.SceneStatusFailed
			return
		}
		scene.Visual = asset
		o.bumpProgress(job, completedAssets, totalAssets)
	}()

	wg.Wait()

	mu.Lock()
	if scene.Complete() {
		scene.Status = models.SceneStatusComplete
	} else {
		scene.Status = models.SceneStatusFailed
	}
	mu.Unlock()
}

func (o *Orchestrator) bumpProgress(job *models.Job, completedAssets *int32, totalAssets int) {
	*completedAssets++
	pct := int((float64(*completedAssets) / float64(totalAssets)) * 90.0)
	job.Advance(models.PhaseAssets, pct, "generating scene assets")
}

// synthesizeAudio produces a scene's narration audio via
// cache -> circuit breaker -> retry -> resource governor("tts") -> raw
// HTTP call, per spec.md §4.6. The governor permit is acquired innermost
// (inside the retry loop, around the raw Synthesize call only) so it
// isn't held across backoff sleeps or breaker fast-fails, matching
// internal/visual/router.go's wrap order.
func (o *Orchestrator) synthesizeAudio(ctx context.Context, scene *models.Scene) (*models.AudioAsset, error) {
	key := fingerprint.Key("audio", scene.NarrationText, o.cfg.DefaultVoice)

	data, err := o.assetCache.GetOrCompute(ctx, cache.NamespaceAudio, key, func(ctx context.Context) ([]byte, error) {
		var result *tts.Result
		callErr := o.breakers.Call(ctx, "tts", func(ctx context.Context) error {
			return retry.Do(ctx, o.retryPolicy, func(ctx context.Context) error {
				release, acqErr := o.governor.Acquire(ctx, resource.KindTTS)
				if acqErr != nil {
					return acqErr
				}
				defer release()

				r, synthErr := o.tts.Synthesize(ctx, scene.NarrationText, o.cfg.DefaultVoice)
				if synthErr != nil {
					return synthErr
				}
				result = r
				return nil
			})
		})
		if callErr != nil {
			return nil, callErr
		}
		return json.Marshal(result)
	})
	if err != nil {
		return nil, err
	}

	var result tts.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("tts: decode cached result: %w", err)
	}

	dir := filepath.Join(o.cfg.OutputDir, "tmp-audio")
	path, writeErr := writeAudioAsset(dir, scene.ID, &result)
	if writeErr != nil {
		return nil, writeErr
	}

	return &models.AudioAsset{
		Path:       path,
		Format:     result.Format,
		DurationMs: result.DurationMs,
		CreatedAt:  time.Now(),
	}, nil
}

func writeAudioAsset(dir, sceneID string, result *tts.Result) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("write audio asset: mkdir: %w", err)
	}
	path := filepath.Join(dir, sceneID+".mp3")
	if err := os.WriteFile(path, result.Audio, 0o644); err != nil {
		return "", fmt.Errorf("write audio asset: %w", err)
	}
	return path, nil
}

func completedScenes(scenes []*models.Scene) []*models.Scene {
	out := make([]*models.Scene, 0, len(scenes))
	for _, s := range scenes {
		if s.Complete() {
			out = append(out, s)
		}
	}
	return out
}
