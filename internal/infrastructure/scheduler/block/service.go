package blockscheduler

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/gateway-os/gatewayd/internal/core/ports"
)

type Option func(*service)

func WithTickerInterval(interval time.Duration) Option {
	return func(s *service) {
		s.tickerInterval = interval
	}
}

type service struct {
	chainClock     ports.ChainClock
	lock           sync.Locker
	taskes         map[int64][]func()
	stopCh         chan struct{}
	tickerInterval time.Duration
}

func NewScheduler(chainClock ports.ChainClock, opts ...Option) ports.SchedulerService {
	svc := &service{
		chainClock,
		&sync.Mutex{},
		make(map[int64][]func()),
		make(chan struct{}),
		time.Second * 10,
	}

	for _, opt := range opts {
		opt(svc)
	}

	return svc
}

func (s *service) Start() {
	go func() {
		ticker := time.NewTicker(s.tickerInterval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stopCh:
				return
			case <-ticker.C:
				taskes, err := s.popTaskes()
				if err != nil {
					log.Errorf("error fetching tasks: %s", err)
					continue
				}

				log.Debugf("fetched %d tasks", len(taskes))
				for _, task := range taskes {
					go task()
				}
			}
		}
	}()
}

func (s *service) Stop() {
	s.stopCh <- struct{}{}
	close(s.stopCh)
}

func (s *service) Unit() ports.TimeUnit {
	return ports.BlockHeight
}

func (s *service) AddNow(delta int64) int64 {
	tip, err := s.tipHeight()
	if err != nil {
		return 0
	}

	return tip + delta
}

func (s *service) AfterNow(expiry int64) bool {
	tip, err := s.tipHeight()
	if err != nil {
		return false
	}

	return expiry > tip
}

func (s *service) ScheduleTaskOnce(at int64, task func()) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.taskes[at]; !ok {
		s.taskes[at] = make([]func(), 0)
	}

	s.taskes[at] = append(s.taskes[at], task)

	return nil
}

func (s *service) popTaskes() ([]func(), error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	tip, err := s.tipHeight()
	if err != nil {
		return nil, err
	}

	taskes := make([]func(), 0)

	for height, tasks := range s.taskes {
		if height > tip {
			continue
		}

		taskes = append(taskes, tasks...)
		delete(s.taskes, height)
	}

	return taskes, nil
}

func (s *service) tipHeight() (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	tip, err := s.chainClock.CurrentHeight(ctx)
	if err != nil {
		return 0, err
	}

	return int64(tip), nil
}
