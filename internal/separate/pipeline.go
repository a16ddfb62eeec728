package separate

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"diarserver/internal/apierrors"
	"diarserver/internal/audio"
	"diarserver/internal/config"
)

// Pipeline runs the separation contract of spec §4.5. It carries a
// per-process "processing" latch: at most one separation may be in flight
// at a time, matching spec's Busy contract.
type Pipeline struct {
	cfg       config.Separate
	ffmpegBin string
	busy      chan struct{} // capacity 1, used as a non-blocking mutex
}

// New constructs a separation pipeline. Prefer Get() for the process-wide
// instance sharing the singleton busy latch.
func New(cfg config.Separate, ffmpegBin string) *Pipeline {
	return &Pipeline{cfg: cfg, ffmpegBin: ffmpegBin, busy: make(chan struct{}, 1)}
}

// Run extracts each requested segment from the original waveform, invokes
// the external separation tool on it, and returns a ZIP archive of the
// isolated clips. A second concurrent call while one is in flight fails
// immediately with ErrBusy.
func (p *Pipeline) Run(cancel <-chan struct{}, original audio.Waveform, segments []SegmentRequest, numSpeakersClaimed int) ([]byte, error) {
	select {
	case p.busy <- struct{}{}:
	default:
		log.Printf("separate: rejected run, a separation is already in progress")
		return nil, apierrors.ErrBusy
	}
	defer func() { <-p.busy }()

	log.Printf("separate: starting run with %d segment(s), numSpeakers=%d", len(segments), numSpeakersClaimed)

	temp := &tempSet{}
	defer temp.cleanup()

	select {
	case <-cancel:
		return nil, apierrors.ErrCancelled
	default:
	}

	sourceWAV, err := audio.WriteTempWAV(original, "", "diarize-source-*.wav")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apierrors.ErrInternal, err)
	}
	temp.track(sourceWAV)

	speakerOrder := firstSeenOrder(segments)
	requestedSources := numSpeakersClaimed
	if requestedSources > 2 {
		requestedSources = 2 // the underlying model is limited to two sources (spec §4.5, §9)
	}
	if requestedSources < 1 {
		requestedSources = 1
	}

	var outputs []Output
	for _, seg := range segments {
		select {
		case <-cancel:
			return nil, apierrors.ErrCancelled
		default:
		}

		out, err := p.separateOne(cancel, temp, sourceWAV, seg, speakerOrder, requestedSources)
		if err != nil {
			log.Printf("separate: segment speaker=%d [%.2f-%.2f] failed: %v", seg.Speaker, seg.StartTime, seg.EndTime, err)
			return nil, err
		}
		outputs = append(outputs, out)
	}

	archive, err := buildArchive(outputs)
	if err != nil {
		log.Printf("separate: archive assembly failed: %v", err)
		return nil, fmt.Errorf("%w: %v", apierrors.ErrInternal, err)
	}
	log.Printf("separate: run complete, %d output(s) archived", len(outputs))
	return archive, nil
}

// firstSeenOrder maps each speaker id to its position of first appearance
// in segments, per spec §4.5's "position in first-seen order" rule.
func firstSeenOrder(segments []SegmentRequest) map[int]int {
	order := make(map[int]int)
	next := 0
	for _, s := range segments {
		if _, ok := order[s.Speaker]; !ok {
			order[s.Speaker] = next
			next++
		}
	}
	return order
}

func (p *Pipeline) separateOne(cancel <-chan struct{}, temp *tempSet, sourceWAV string, seg SegmentRequest, speakerOrder map[int]int, requestedSources int) (Output, error) {
	sliceName := salt(fmt.Sprintf("slice-%d-%.2f-%.2f", seg.Speaker, seg.StartTime, seg.EndTime)) + ".wav"
	slicePath := filepath.Join(os.TempDir(), sliceName)
	temp.track(slicePath)

	if err := extractSliceViaFFmpeg(cancel, p.ffmpegBin, sourceWAV, seg.StartTime, seg.EndTime, slicePath); err != nil {
		return Output{}, err
	}

	outDir, err := os.MkdirTemp("", "diarize-sep-*")
	if err != nil {
		return Output{}, fmt.Errorf("%w: %v", apierrors.ErrInternal, err)
	}
	temp.track(outDir)

	outputPaths, err := runSeparationTool(cancel, p.cfg, slicePath, outDir, requestedSources)
	if err != nil {
		return Output{}, err
	}
	for _, path := range outputPaths {
		temp.track(path)
	}

	trackIdx := speakerOrder[seg.Speaker] % max(len(outputPaths), 1)
	if trackIdx >= len(outputPaths) {
		return Output{}, fmt.Errorf("%w: separation tool returned %d tracks, need index %d", apierrors.ErrSeparationFailure, len(outputPaths), trackIdx)
	}

	finalPath := filepath.Join(os.TempDir(), salt(fmt.Sprintf("final-%d", seg.Speaker))+".wav")
	if err := copyFile(outputPaths[trackIdx], finalPath); err != nil {
		return Output{}, fmt.Errorf("%w: %v", apierrors.ErrInternal, err)
	}
	temp.track(finalPath) // tracked immediately so a later segment's failure still cleans this one up

	return Output{
		Speaker:   seg.Speaker,
		StartTime: seg.StartTime,
		EndTime:   seg.EndTime,
		AudioPath: finalPath,
	}, nil
}

func salt(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString())
}
