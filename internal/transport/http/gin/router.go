package httpgin

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/kirinyoku/slotsale/internal/catalog"
	"github.com/kirinyoku/slotsale/internal/domain"
	redisrepo "github.com/kirinyoku/slotsale/internal/repository/redis"
	"github.com/kirinyoku/slotsale/internal/service"
	"github.com/kirinyoku/slotsale/internal/service/booking"
	"github.com/kirinyoku/slotsale/internal/service/orders"
	"github.com/kirinyoku/slotsale/internal/service/query"
	"github.com/kirinyoku/slotsale/internal/service/reservation"
)

// Options carries the optional collaborators of the router. Nil Idem or
// Stream disables the Idempotency-Key support and /slots/stream.
type Options struct {
	Idem       *redisrepo.IdempotencyStore
	Stream     *redisrepo.SlotsPubSub
	AdminToken string
}

func NewRouter(
	svcs *service.Services,
	opts Options,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), LoggingMiddleware(logger), RequestIDMiddleware(), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// health
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Storefront API
	r.GET("/packages", handleListPackages())
	r.GET("/slots", handleListSlots(svcs))
	r.GET("/slots/summary", handleSlotSummary(svcs))
	r.GET("/slots/stream", handleSlotStream(opts.Stream, logger))
	r.GET("/slots/:number", handleGetSlot(svcs))

	r.POST("/reserve", handleReserve(svcs, opts.Idem))
	r.POST("/orders", handleCreateOrder(svcs))
	r.POST("/confirm", handleConfirm(svcs))

	// Admin API
	admin := r.Group("/admin", AdminAuth(opts.AdminToken))
	{
		admin.GET("/bookings", handleListBookings(svcs))
		admin.GET("/bookings/:orderId", handleGetBooking(svcs))
		admin.GET("/incidents", handleListIncidents(svcs))
	}

	return r
}

// --- Handlers with Swagger annotations ---

// @Summary  List purchase packages
// @Success  200  {array}  domain.Package
// @Router   /packages [get]
func handleListPackages() gin.HandlerFunc {
	return func(c *gin.Context) {
		writeJSONWithCache(c, http.StatusOK, catalog.All(), "public, max-age=300")
	}
}

// @Summary  List every slot with its status
// @Param    status  query  string  false  "available, reserved or booked"
// @Success  200  {array}  domain.Slot
// @Failure  400  {object} ErrorResponse
// @Router   /slots [get]
func handleListSlots(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var status domain.SlotStatus
		if q := c.Query("status"); q != "" {
			status = domain.SlotStatus(q)
			if !status.Valid() {
				c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_status"})
				return
			}
		}

		slots, err := svcs.Query.ListSlots(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}

		if status != "" {
			filtered := make([]domain.Slot, 0, len(slots))
			for _, s := range slots {
				if s.Status == status {
					filtered = append(filtered, s)
				}
			}
			slots = filtered
		}

		writeJSONWithCache(c, http.StatusOK, slots, "no-cache")
	}
}

// @Summary  Get one slot
// @Param    number  path  int  true  "Slot number"
// @Success  200  {object} domain.Slot
// @Failure  400  {object} ErrorResponse
// @Failure  404  {object} ErrorResponse
// @Router   /slots/{number} [get]
func handleGetSlot(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		number, err := strconv.Atoi(c.Param("number"))
		if err != nil || number <= 0 {
			badRequest(c, "slot number must be a positive integer")
			return
		}

		slot, err := svcs.Query.GetSlot(c.Request.Context(), number)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, slot)
	}
}

// @Summary  Slot counts by status
// @Success  200  {object}  domain.SlotCounts
// @Router   /slots/summary [get]
func handleSlotSummary(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		counts, err := svcs.Query.Counts(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, counts, "no-cache")
	}
}

// @Summary  Stream slot changes (server-sent events)
// @Produce  text/event-stream
// @Success  200
// @Failure  503  {object}  ErrorResponse
// @Router   /slots/stream [get]
func handleSlotStream(stream *redisrepo.SlotsPubSub, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if stream == nil {
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "stream_unavailable"})
			return
		}

		ctx, cancel := context.WithCancel(c.Request.Context())
		defer cancel()

		events := make(chan redisrepo.SlotsChanged, 16)
		go func() {
			err := stream.Subscribe(ctx, func(_ context.Context, msg redisrepo.SlotsChanged) {
				select {
				case events <- msg:
				default:
					// slow client; it will catch up from /slots
				}
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("slot stream subscription ended", slog.Any("err", err))
			}
			cancel()
		}()

		heartbeat := time.NewTicker(15 * time.Second)
		defer heartbeat.Stop()

		c.Header("Cache-Control", "no-cache")
		c.Header("X-Accel-Buffering", "no")

		c.Stream(func(w io.Writer) bool {
			select {
			case <-ctx.Done():
				return false
			case msg := <-events:
				c.SSEvent("slots", msg)
				return true
			case t := <-heartbeat.C:
				c.SSEvent("ping", t.Unix())
				return true
			}
		})
	}
}

// @Summary  Reserve slots (idempotent)
// @Param    req body  ReserveRequest true "payload"
// @Header   200 {string} Idempotency-Key "echo"
// @Success  200 {object} ReserveResponse
// @Failure  400 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "unavailable / idem in progress"
// @Failure  422 {object} ErrorResponse "idempotency key reused with other slots"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Router   /reserve [post]
func handleReserve(svcs *service.Services, idem *redisrepo.IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ReserveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		ctx := c.Request.Context()

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		fingerprint, fpErr := reserveFingerprint(req.SlotNumbers)

		var idemStorageKey string
		if idem != nil && idemKey != "" && fpErr == nil {
			idemStorageKey = redisrepo.KeyIdem("reserve", idemKey)

			if replayReserve(c, idem, idemStorageKey, idemKey, fingerprint) {
				return
			}

			locked, err := idem.AcquireLock(ctx, idemStorageKey, 60*time.Second)
			if err != nil {
				respondErr(c, err)
				return
			}
			if !locked {
				if replayReserve(c, idem, idemStorageKey, idemKey, fingerprint) {
					return
				}
				c.Header("Retry-After", "1")
				c.JSON(http.StatusConflict, ErrorResponse{Error: "idempotency_key_in_progress"})
				return
			}
		}

		hold, err := svcs.Reservation.Reserve(ctx, req.SlotNumbers, "ip:"+c.ClientIP())
		if err != nil {
			if idemStorageKey != "" {
				_ = idem.Release(ctx, idemStorageKey)
			}
			respondErr(c, err)
			return
		}

		resp := ReserveResponse{
			OK:        true,
			HoldID:    hold.ID.String(),
			ExpiresAt: hold.ExpiresAt,
		}

		if idemStorageKey != "" {
			b, _ := json.Marshal(resp)
			_ = idem.SaveResult(ctx, idemStorageKey, fingerprint, string(b))
			c.Header("Idempotency-Key", idemKey)
		}

		c.JSON(http.StatusOK, resp)
	}
}

// replayReserve answers from a stored result. A key first used for other
// slots is refused. It reports whether a response was written.
func replayReserve(
	c *gin.Context,
	idem *redisrepo.IdempotencyStore,
	storageKey, idemKey, fingerprint string,
) bool {
	payload, saved, ok, _ := idem.GetResult(c.Request.Context(), storageKey)
	if !ok {
		return false
	}

	if saved != fingerprint {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "idempotency_key_reused",
			Message: "this Idempotency-Key was used for a different set of slots",
		})
		return true
	}

	c.Header("Idempotency-Key", idemKey)
	c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(payload))
	return true
}

// reserveFingerprint identifies a reserve request by its slot set, so the
// same slots in another order match.
func reserveFingerprint(slotNumbers []int) (string, error) {
	numbers, err := domain.NormalizeSlotNumbers(slotNumbers)
	if err != nil {
		return "", err
	}

	h := sha256.New()
	for _, n := range numbers {
		h.Write([]byte(strconv.Itoa(n)))
		h.Write([]byte{','})
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// @Summary  Create a payment order
// @Param    req body  CreateOrderRequest true "payload"
// @Success  200 {object} CreateOrderResponse
// @Failure  400 {object} ErrorResponse
// @Failure  503 {object} ErrorResponse "gateway unavailable"
// @Router   /orders [post]
func handleCreateOrder(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		o, err := svcs.Orders.CreateOrder(
			c.Request.Context(),
			req.PackageID,
			req.SlotNumbers,
			"ip:"+c.ClientIP(),
		)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, CreateOrderResponse{
			GatewayOrderID: o.GatewayOrderID,
			Amount:         o.Amount,
			Currency:       o.Currency,
			Receipt:        o.Receipt,
			Package:        o.Package,
		})
	}
}

// @Summary  Confirm a payment and book the reserved slots
// @Param    req body  ConfirmRequest true "payload"
// @Success  200 {object} ConfirmResponse
// @Failure  400 {object} ErrorResponse "invalid_signature / reservation_lost / payment_mismatch"
// @Failure  409 {object} ErrorResponse "duplicate_order"
// @Router   /confirm [post]
func handleConfirm(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ConfirmRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		var holdID uuid.UUID
		if req.HoldID != "" {
			id, err := uuid.Parse(req.HoldID)
			if err != nil {
				badRequest(c, "holdId: "+err.Error())
				return
			}
			holdID = id
		}

		res, err := svcs.Booking.Finalize(c.Request.Context(), booking.FinalizeInput{
			HoldID:           holdID,
			OrderID:          req.OrderID,
			GatewayOrderID:   req.GatewayOrderID,
			GatewayPaymentID: req.GatewayPaymentID,
			GatewaySignature: req.GatewaySignature,
			SlotNumbers:      req.SlotNumbers,
			PackageID:        req.PackageID,
			Buyer:            req.BuyerContact.toDomain(),
		})
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, ConfirmResponse{Booking: res.Booking, Created: res.Created})
	}
}

// @Summary  List bookings
// @Param    limit  query  int  false "page size"
// @Param    offset query  int  false "offset"
// @Success  200  {array}  domain.Booking
// @Router   /admin/bookings [get]
func handleListBookings(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		bookings, err := svcs.Query.ListBookings(
			c.Request.Context(),
			parseIntDefault(c.Query("limit"), 0),
			parseIntDefault(c.Query("offset"), 0),
		)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, bookings)
	}
}

// @Summary  Get booking by storefront order id
// @Param    orderId  path  string  true  "Order ID"
// @Success  200 {object} domain.Booking
// @Failure  404 {object} ErrorResponse
// @Router   /admin/bookings/{orderId} [get]
func handleGetBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		b, err := svcs.Query.GetBooking(c.Request.Context(), c.Param("orderId"))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

// @Summary  List paid-but-unbooked payments
// @Param    limit  query  int  false "page size"
// @Param    offset query  int  false "offset"
// @Success  200  {array}  domain.PaymentIncident
// @Router   /admin/incidents [get]
func handleListIncidents(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		incidents, err := svcs.Query.ListIncidents(
			c.Request.Context(),
			parseIntDefault(c.Query("limit"), 0),
			parseIntDefault(c.Query("offset"), 0),
		)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, incidents)
	}
}

// --- Helpers ---

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: msg})
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var rl domain.RateLimitedError

	switch {
	// input
	case errors.Is(err, domain.ErrInvalidSlotNumbers):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_slot_numbers"})
	case errors.Is(err, catalog.ErrInvalidPackage):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_package"})
	case errors.Is(err, catalog.ErrSlotCountMismatch):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "slot_count_mismatch"})
	case errors.As(err, &rl):
		c.Header("Retry-After", strconv.Itoa(max(1, int(rl.RetryAfter.Round(time.Second).Seconds()))))
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate_limited"})
	// reservation service
	case errors.Is(err, reservation.ErrSlotsUnavailable):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "unavailable"})
	// booking service
	case errors.Is(err, booking.ErrInvalidSignature):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_signature"})
	case errors.Is(err, booking.ErrReservationLost):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "reservation_lost",
			Message: "payment received but the slots are no longer held; it will be reconciled",
		})
	case errors.Is(err, booking.ErrPaymentMismatch):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "payment_mismatch"})
	case errors.Is(err, booking.ErrDuplicateOrder):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "duplicate_order"})
	// gateway
	case errors.Is(err, orders.ErrGatewayUnavailable), errors.Is(err, booking.ErrGatewayUnavailable):
		c.Header("Retry-After", "5")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "gateway_unavailable", Message: "try again shortly"})
	case errors.Is(err, orders.ErrGatewayRejected):
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "gateway_rejected"})
	// query service
	case errors.Is(err, query.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "booking_not_found"})
	case errors.Is(err, query.ErrSlotNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "slot_not_found"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Message: "try again shortly"})
	}
}
