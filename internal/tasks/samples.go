package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/desertthunder/musegen/internal/models"
	"github.com/desertthunder/musegen/internal/shared"
	"golang.org/x/time/rate"
)

// MaxSeed is the highest sample seed. Valid seeds are 1 through MaxSeed.
const MaxSeed = 13

// SampleGenerator produces MIDI samples. [services.Trainer] satisfies it.
type SampleGenerator interface {
	GenerateSample(ctx context.Context, sessionID string, seed int) ([]byte, error)
}

// SampleRecorder persists generated sample metadata (e.g. repositories.SampleRepository).
type SampleRecorder interface {
	Create(sample *models.Sample) error
}

// SampleResult is the outcome of generating one seed.
type SampleResult struct {
	Seed int
	Path string
	Size int
	Err  error
}

// BulkSampleOpts contains configuration for bulk sample generation.
type BulkSampleOpts struct {
	OutputDir  string         // Directory MIDI files are written to (default: samples)
	NumWorkers int            // Concurrent workers (default: 3, max: 8)
	RateLimit  float64        // Requests per second (default: 2)
	Recorder   SampleRecorder // Optional metadata store
}

// BulkSampleResult summarizes a bulk generation run, ordered by seed.
type BulkSampleResult struct {
	SessionID string
	Results   []SampleResult
	Succeeded int
	Failed    int
}

// SamplePath returns where the sample for seed is written.
func SamplePath(dir, sessionID string, seed int) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%d.mid", sessionID, seed))
}

// ValidSeed reports whether seed maps onto a piano key.
func ValidSeed(seed int) bool {
	return seed >= 1 && seed <= MaxSeed
}

// SaveSample generates one sample, writes it under dir and records it when rec is non-nil.
func SaveSample(ctx context.Context, gen SampleGenerator, rec SampleRecorder, dir, sessionID string, seed int) SampleResult {
	res := SampleResult{Seed: seed}

	data, err := gen.GenerateSample(ctx, sessionID, seed)
	if err != nil {
		res.Err = fmt.Errorf("failed to generate sample: %w", err)
		return res
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		res.Err = fmt.Errorf("failed to create output directory: %w", err)
		return res
	}

	path := SamplePath(dir, sessionID, seed)
	if err := os.WriteFile(path, data, 0644); err != nil {
		res.Err = fmt.Errorf("failed to write sample: %w", err)
		return res
	}
	res.Path = path
	res.Size = len(data)

	if rec != nil {
		if err := rec.Create(models.NewSample(sessionID, seed, path, int64(len(data)))); err != nil {
			res.Err = fmt.Errorf("sample written but not recorded: %w", err)
		}
	}
	return res
}

// BulkSamples generates samples for several seeds concurrently with rate limiting and progress tracking.
//
// A producer paces requests with a token bucket while a fixed pool of workers generates and saves samples.
// Individual failures are collected in the result rather than aborting the run.
func BulkSamples(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	gen SampleGenerator,
	sessionID string,
	seeds []int,
	opts BulkSampleOpts,
) (*BulkSampleResult, error) {
	if gen == nil {
		return nil, fmt.Errorf("%w: sample generator not initialized", shared.ErrServiceUnavailable)
	}
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id", shared.ErrMissingArgument)
	}
	for _, seed := range seeds {
		if !ValidSeed(seed) {
			return nil, fmt.Errorf("%w: seed %d outside 1-%d", shared.ErrInvalidArgument, seed, MaxSeed)
		}
	}

	if opts.OutputDir == "" {
		opts.OutputDir = "samples"
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 3
	}
	if opts.NumWorkers > 8 {
		opts.NumWorkers = 8
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 2.0
	}

	result := &BulkSampleResult{
		SessionID: sessionID,
		Results:   make([]SampleResult, 0, len(seeds)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan int, len(seeds))
	results := make(chan SampleResult, len(seeds))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go sampleWorker(ctx, &wg, gen, sessionID, jobs, results, opts)
	}

	go func() {
		defer close(jobs)
		for i, seed := range seeds {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			sendProgress(prog, generatingSampleUpdate(i+1, len(seeds), seed))
			jobs <- seed
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		if res.Err == nil {
			result.Succeeded++
			sendProgress(prog, sampleSavedUpdate(completed, len(seeds), res))
		} else {
			result.Failed++
			sendProgress(prog, sampleFailedUpdate(completed, len(seeds), res))
		}
	}

	sort.SliceStable(result.Results, func(i, j int) bool {
		return result.Results[i].Seed < result.Results[j].Seed
	})

	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("sample generation interrupted: %w", err)
	}
	return result, nil
}

// sampleWorker generates samples for seeds read from jobs.
func sampleWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	gen SampleGenerator,
	sessionID string,
	jobs <-chan int,
	results chan<- SampleResult,
	opts BulkSampleOpts,
) {
	defer wg.Done()

	for seed := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}
		results <- SaveSample(ctx, gen, opts.Recorder, opts.OutputDir, sessionID, seed)
	}
}
