package workflow

import (
	"conveyor/internal/config"
	"conveyor/internal/queue"
)

// Queues holds the three pipeline queues in flow order.
type Queues struct {
	Captions *queue.Store
	Info     *queue.Store
	Resting  *queue.Store
}

// OpenQueues opens every pipeline queue rooted at the configured directories.
func OpenQueues(cfg *config.Config) (Queues, error) {
	captions, err := queue.Open(cfg.Queues.CaptionsDir)
	if err != nil {
		return Queues{}, err
	}
	info, err := queue.Open(cfg.Queues.InfoDir)
	if err != nil {
		return Queues{}, err
	}
	resting, err := queue.Open(cfg.Queues.RestingDir)
	if err != nil {
		return Queues{}, err
	}
	return Queues{Captions: captions, Info: info, Resting: resting}, nil
}

// All returns the queues in flow order, the set the duplicate check spans.
func (q Queues) All() []*queue.Store {
	return []*queue.Store{q.Captions, q.Info, q.Resting}
}
