package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/23skdu/elimstack/internal/tracing"
	"github.com/23skdu/elimstack/internal/xorshift"
	"github.com/23skdu/elimstack/stack"
)

// warmPushes is the number of leading iterations, split across threads,
// that always push so early pops find values.
const warmPushes = 1000

// run builds one stack sized for the largest round and times every round.
// A nil tracer disables tracing.
func run(ctx context.Context, cfg *Config, logger zerolog.Logger, tracer *tracing.Tracer, out io.Writer) ([]Row, error) {
	s, err := stack.New(cfg.stackConfig(), stack.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	defer s.Close()

	ctx, span := tracer.Start(ctx, "stackbench.run",
		attribute.String("variant", s.Variant().String()),
		attribute.Int("ops", cfg.Ops),
		attribute.Int("max_threads", s.Threads()),
	)
	defer span.End()

	var rows []Row
	for _, threads := range ThreadCounts(cfg) {
		for rep := 0; rep < cfg.Repetitions; rep++ {
			if err := ctx.Err(); err != nil {
				span.SetError(err)
				return rows, err
			}
			_, roundSpan := tracer.Start(ctx, "stackbench.round",
				attribute.Int("threads", threads),
				attribute.Int("repetition", rep),
			)
			row, err := runRound(ctx, s, cfg, threads, rep)
			if err != nil {
				roundSpan.SetError(err)
				roundSpan.End()
				span.SetError(err)
				return rows, err
			}
			roundSpan.SetAttributes(
				attribute.Int64("elapsed_ms", row.ElapsedMS),
				attribute.Int64("eliminated", int64(row.Eliminated)),
				attribute.Int64("central", int64(row.Central)),
				attribute.Int64("cas_retries", int64(row.CASRetries)),
			)
			roundSpan.End()
			rows = append(rows, row)

			fmt.Fprintf(out, "%d Threads, Time = %dms\n", threads, row.ElapsedMS)
			if cfg.DumpCount > 0 {
				fmt.Fprintf(out, "Top %d: %v\n", cfg.DumpCount, s.Dump(cfg.DumpCount))
			}
			logger.Debug().
				Int("threads", threads).
				Int64("elapsed_ms", row.ElapsedMS).
				Uint64("eliminated", row.Eliminated).
				Uint64("cas_retries", row.CASRetries).
				Msg("Round finished")
		}
	}
	return rows, nil
}

// runRound clears the stack and has each of threads workers perform its
// share of the workload: push i on a coin flip or during warm-up, pop
// otherwise.
func runRound(ctx context.Context, s *stack.Stack, cfg *Config, threads, rep int) (Row, error) {
	s.Clear()
	before := s.Stats()

	iters := cfg.Ops / threads
	warm := warmPushes / threads

	start := time.Now()
	err := s.RunN(ctx, threads, func(_ context.Context, w *stack.Worker) error {
		rng := xorshift.NewSeeded(uint64(rep)<<32 | uint64(w.ID()))
		for i := 1; i <= iters; i++ {
			if rng.Intn(2) == 1 || i <= warm {
				w.Push(int32(i))
			} else {
				w.Pop()
			}
		}
		return nil
	})
	elapsed := time.Since(start)
	if err != nil {
		return Row{}, err
	}

	return newRow(s.Variant(), threads, rep, iters*threads, elapsed, statsDelta(s.Stats(), before)), nil
}

func statsDelta(after, before stack.Stats) stack.Stats {
	return stack.Stats{
		Pushes:         after.Pushes - before.Pushes,
		Pops:           after.Pops - before.Pops,
		EmptyPops:      after.EmptyPops - before.EmptyPops,
		PushEliminated: after.PushEliminated - before.PushEliminated,
		PopEliminated:  after.PopEliminated - before.PopEliminated,
		CentralPushes:  after.CentralPushes - before.CentralPushes,
		CentralPops:    after.CentralPops - before.CentralPops,
		CASRetries:     after.CASRetries - before.CASRetries,
		TimedOut:       after.TimedOut - before.TimedOut,
		Contended:      after.Contended - before.Contended,
		Collided:       after.Collided - before.Collided,
		WindowGrows:    after.WindowGrows - before.WindowGrows,
		WindowShrinks:  after.WindowShrinks - before.WindowShrinks,
	}
}
