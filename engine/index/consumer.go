package index

import (
	"context"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/lorebase/lorebase/pkg/natsutil"
)

const (
	// ReindexSubject carries reindex commands.
	ReindexSubject = "lorebase.index.reindex"
	// ReindexDoneSubject carries completion events.
	ReindexDoneSubject = "lorebase.index.done"
)

// ReindexCommand asks a running indexer to rebuild the collection.
type ReindexCommand struct {
	Force bool `json:"force"`
}

// ReindexDone reports the outcome of a reindex command.
type ReindexDone struct {
	Stats    Stats  `json:"stats"`
	Error    string `json:"error,omitempty"`
	Duration string `json:"duration"`
}

// StartConsumer subscribes to reindex commands and runs the indexer for
// each, publishing a completion event when done. Commands arriving while a
// run is in progress queue up behind it.
func (ix *Indexer) StartConsumer(nc *nats.Conn, root string) (*nats.Subscription, error) {
	running := make(chan struct{}, 1)

	return natsutil.Subscribe(nc, ReindexSubject, func(ctx context.Context, cmd ReindexCommand) {
		running <- struct{}{}
		defer func() { <-running }()

		ix.log.Info("reindex command received", "force", cmd.Force)
		start := time.Now()
		stats, err := ix.Run(ctx, root, cmd.Force)

		done := ReindexDone{Stats: stats, Duration: time.Since(start).String()}
		if err != nil {
			done.Error = err.Error()
			ix.log.Error("reindex failed", "error", err)
		}
		if pubErr := natsutil.Publish(ctx, nc, ReindexDoneSubject, done); pubErr != nil {
			ix.log.Warn("publish reindex completion", "error", pubErr)
		}
	})
}
