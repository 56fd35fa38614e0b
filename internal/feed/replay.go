package feed

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"GovPulse/internal/domain/models"
	domrepo "GovPulse/internal/domain/repository"
	"GovPulse/pkg/logger"
	xutil "GovPulse/pkg/util"

	"github.com/google/uuid"
)

// Replayer drives the pipeline from a recorded CSV of market ticks,
// publishing each row to the tick topic. In realtime mode pacing follows the
// recorded timestamp gaps scaled by Speed; otherwise a fixed interval of
// 1/Speed seconds is used.
type Replayer struct {
	stream domrepo.Stream
	log    *logger.Logger

	// Speed is a multiplier: 2.0 replays twice as fast. Must be > 0.
	Speed    float64
	Realtime bool
}

func NewReplayer(st domrepo.Stream, log *logger.Logger) *Replayer {
	return &Replayer{stream: st, log: log.With("replay"), Speed: 1.0}
}

// Load parses a tick CSV. Expected columns: timestamp,symbol,price,size,side
// with an optional header row. Timestamps may be RFC3339 or unix
// seconds/milliseconds. Rows are sorted by timestamp before being returned.
func Load(path string) ([]*models.Tick, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open replay file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var ticks []*models.Tick
	line := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read replay file: %w", err)
		}
		line++
		if len(rec) < 4 {
			return nil, fmt.Errorf("replay line %d: want at least 4 columns, got %d", line, len(rec))
		}

		t, ok := xutil.ParseTime(rec[0])
		if !ok {
			if line == 1 {
				continue // header row
			}
			return nil, fmt.Errorf("replay line %d: bad timestamp %q", line, rec[0])
		}
		ts := t.UnixMilli()

		price, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return nil, fmt.Errorf("replay line %d: bad price %q", line, rec[2])
		}
		size, err := strconv.ParseFloat(rec[3], 64)
		if err != nil {
			return nil, fmt.Errorf("replay line %d: bad size %q", line, rec[3])
		}
		side := "unknown"
		if len(rec) > 4 && rec[4] != "" {
			side = rec[4]
		}

		ticks = append(ticks, &models.Tick{
			StreamID:  uuid.NewString(),
			Timestamp: ts,
			Symbol:    rec[1],
			Price:     price,
			Size:      size,
			Side:      side,
			Source:    "replay",
		})
	}

	sort.SliceStable(ticks, func(i, j int) bool { return ticks[i].Timestamp < ticks[j].Timestamp })
	return ticks, nil
}

// Run publishes every tick in order, pacing between rows, until done or ctx
// is cancelled. Returns the number of ticks published.
func (r *Replayer) Run(ctx context.Context, ticks []*models.Tick) (int, error) {
	speed := r.Speed
	if speed <= 0 {
		speed = 1.0
	}

	published := 0
	var prevTS int64
	for i, t := range ticks {
		if i > 0 {
			if err := r.pause(ctx, t.Timestamp-prevTS, speed); err != nil {
				return published, err
			}
		}
		prevTS = t.Timestamp

		if err := t.Validate(); err != nil {
			r.log.Warn("skipping invalid tick", logger.Int("row", i), logger.Error(err))
			continue
		}
		if _, err := r.stream.Append(ctx, models.TopicTicks, t); err != nil {
			return published, fmt.Errorf("publish tick %d: %w", i, err)
		}
		published++
	}

	r.log.Info("replay finished", logger.Int("published", published))
	return published, nil
}

func (r *Replayer) pause(ctx context.Context, gapMS int64, speed float64) error {
	var d time.Duration
	if r.Realtime {
		if gapMS < 0 {
			gapMS = 0
		}
		d = time.Duration(float64(gapMS)/speed) * time.Millisecond
	} else {
		secs := 1.0 / speed
		if secs < 0.001 {
			secs = 0.001
		}
		d = time.Duration(secs * float64(time.Second))
	}
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
