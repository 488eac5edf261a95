package services

import (
	"context"
	"time"

	"abride/internal/repositories/interfaces"
	"abride/pkg/cache"
	"abride/pkg/logger"
	"abride/pkg/websocket"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RefreshChannel is the Redis pub/sub channel other service instances
// listen on to relay refresh signals to their own websocket clients.
const RefreshChannel = "abride:trip_refresh"

// ReconcileService re-derives trip state from bookings and pushes the
// result back to the store and out to open sessions. It runs eagerly after
// every mutation and periodically as a safety net, and always replaces the
// derived state wholesale instead of patching increments.
type ReconcileService interface {
	Reconcile(ctx context.Context, tripIDs ...primitive.ObjectID)
	Run(ctx context.Context)
}

type ReconcileOptions struct {
	// WatchedInterval is how often trips with an open session watching them
	// are re-derived.
	WatchedInterval time.Duration
	// SweepInterval is how often every open trip is re-derived even without
	// a watcher or a mutation trigger.
	SweepInterval time.Duration
}

type reconcileService struct {
	tripRepo    interfaces.TripRepository
	bookingRepo interfaces.BookingRepository
	ledger      *SeatLedger
	redis       *cache.RedisCache
	wsHandler   *websocket.Handler
	logger      *logger.Logger
	options     ReconcileOptions
}

func NewReconcileService(
	tripRepo interfaces.TripRepository,
	bookingRepo interfaces.BookingRepository,
	ledger *SeatLedger,
	redis *cache.RedisCache,
	wsHandler *websocket.Handler,
	log *logger.Logger,
	options ReconcileOptions,
) ReconcileService {
	if options.WatchedInterval <= 0 {
		options.WatchedInterval = 5 * time.Second
	}
	if options.SweepInterval <= 0 {
		options.SweepInterval = 30 * time.Second
	}

	return &reconcileService{
		tripRepo:    tripRepo,
		bookingRepo: bookingRepo,
		ledger:      ledger,
		redis:       redis,
		wsHandler:   wsHandler,
		logger:      log,
		options:     options,
	}
}

// Reconcile re-derives each trip. A failed re-fetch is logged and skipped:
// readers keep the previous snapshot rather than losing data.
func (s *reconcileService) Reconcile(ctx context.Context, tripIDs ...primitive.ObjectID) {
	for _, tripID := range tripIDs {
		if err := s.reconcileOne(ctx, tripID); err != nil {
			s.logger.WithTripID(tripID).WithError(err).Warn("trip reconciliation failed, keeping previous state")
		}
	}
}

func (s *reconcileService) reconcileOne(ctx context.Context, tripID primitive.ObjectID) error {
	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return err
	}

	bookings, err := s.bookingRepo.GetByTrip(ctx, tripID)
	if err != nil {
		return err
	}

	available := s.ledger.AvailableSeats(trip, bookings)
	status := s.ledger.DeriveStatus(trip, available)

	if trip.Status.IsOpen() {
		if err := s.tripRepo.SetDerivedState(ctx, tripID, available, status); err != nil {
			return err
		}

		if status != trip.Status {
			s.logger.WithTripID(tripID).
				WithFields(map[string]interface{}{
					"from":            string(trip.Status),
					"to":              string(status),
					"available_seats": available,
				}).
				Info("trip status re-derived")
		}
	}

	s.publishRefresh(ctx, tripID)
	return nil
}

// publishRefresh signals every open view of the trip to re-fetch: local
// websocket clients directly, remote instances through Redis pub/sub.
func (s *reconcileService) publishRefresh(ctx context.Context, tripID primitive.ObjectID) {
	if s.wsHandler != nil {
		s.wsHandler.SendTripRefresh(tripID)
	}

	if s.redis != nil {
		if err := s.redis.Publish(ctx, RefreshChannel, tripID.Hex()); err != nil {
			s.logger.WithTripID(tripID).WithError(err).Warn("failed to publish refresh signal")
		}
	}
}

// Run drives the periodic sweeps and relays refresh signals published by
// other instances until ctx is cancelled.
func (s *reconcileService) Run(ctx context.Context) {
	go s.relayRemoteRefreshes(ctx)

	watched := time.NewTicker(s.options.WatchedInterval)
	defer watched.Stop()
	sweep := time.NewTicker(s.options.SweepInterval)
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-watched.C:
			s.reconcileWatched(ctx)
		case <-sweep.C:
			s.sweep(ctx)
		}
	}
}

// reconcileWatched refreshes only the trips someone is actively viewing.
// It tightens the feedback loop for dashboards without paying the cost of
// a full sweep on every tick.
func (s *reconcileService) reconcileWatched(ctx context.Context) {
	if s.wsHandler == nil {
		return
	}

	for _, tripID := range s.wsHandler.GetHub().WatchedTrips() {
		if err := s.reconcileOne(ctx, tripID); err != nil {
			s.logger.WithTripID(tripID).WithError(err).Warn("watched trip reconciliation failed")
		}
	}
}

func (s *reconcileService) sweep(ctx context.Context) {
	trips, err := s.tripRepo.GetOpenTrips(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("reconcile sweep failed to list open trips")
		return
	}

	for _, trip := range trips {
		if err := s.reconcileOne(ctx, trip.ID); err != nil {
			s.logger.WithTripID(trip.ID).WithError(err).Warn("sweep reconciliation failed")
		}
	}
}

func (s *reconcileService) relayRemoteRefreshes(ctx context.Context) {
	if s.redis == nil || s.wsHandler == nil {
		return
	}

	sub := s.redis.Subscribe(ctx, RefreshChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			// Payloads are JSON-encoded strings from RedisCache.Publish.
			tripHex := msg.Payload
			if len(tripHex) >= 2 && tripHex[0] == '"' {
				tripHex = tripHex[1 : len(tripHex)-1]
			}

			tripID, err := primitive.ObjectIDFromHex(tripHex)
			if err != nil {
				s.logger.WithField("payload", msg.Payload).Warn("dropping malformed refresh signal")
				continue
			}

			s.wsHandler.SendTripRefresh(tripID)
		}
	}
}
