package checkout

import (
	"context"
	stdErrors "errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/techstore-checkout/internal/pricing"
	"github.com/angelmondragon/techstore-checkout/internal/stock"
	"github.com/angelmondragon/techstore-checkout/pkg/auth"
	pkgerrors "github.com/angelmondragon/techstore-checkout/pkg/errors"
	"github.com/angelmondragon/techstore-checkout/pkg/logger"
	"github.com/angelmondragon/techstore-checkout/pkg/types"
	"github.com/angelmondragon/techstore-checkout/pkg/validate"
	"github.com/google/uuid"
)

const defaultCallTimeout = 10 * time.Second

// Config wires the collaborators of the orchestrator.
type Config struct {
	Orders      OrderService
	Payments    PaymentService
	Processor   PaymentProcessor
	Pricing     *pricing.Engine
	Lock        Lock
	Observers   []Observer
	Logger      *logger.Logger
	CallTimeout time.Duration
	Clock       func() time.Time
}

// Orchestrator starts checkout attempts. It holds no per-attempt state.
type Orchestrator struct {
	orders      OrderService
	payments    PaymentService
	processor   PaymentProcessor
	pricing     *pricing.Engine
	lock        Lock
	observers   []Observer
	logg        *logger.Logger
	callTimeout time.Duration
	now         func() time.Time
}

func NewOrchestrator(cfg Config) (*Orchestrator, error) {
	if cfg.Orders == nil {
		return nil, fmt.Errorf("order service required")
	}
	if cfg.Payments == nil {
		return nil, fmt.Errorf("payment service required")
	}
	if cfg.Processor == nil {
		return nil, fmt.Errorf("payment processor required")
	}
	if cfg.Pricing == nil {
		return nil, fmt.Errorf("pricing engine required")
	}
	if cfg.Lock == nil {
		cfg.Lock = NewMemoryLock()
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Orchestrator{
		orders:      cfg.Orders,
		payments:    cfg.Payments,
		processor:   cfg.Processor,
		pricing:     cfg.Pricing,
		lock:        cfg.Lock,
		observers:   cfg.Observers,
		logg:        cfg.Logger,
		callTimeout: cfg.CallTimeout,
		now:         cfg.Clock,
	}, nil
}

// Request is the shopper input for one attempt.
type Request struct {
	Shopper          Shopper
	Cart             Cart
	ShippingInfo     types.ShippingInfo
	PaymentMethodRef string
}

// Checkout runs a fresh attempt to completion.
func (o *Orchestrator) Checkout(ctx context.Context, req Request) (*Result, error) {
	return o.NewAttempt(req).Run(ctx)
}

// NewAttempt creates an idle attempt. Retrying after a failure means creating
// a new attempt; a failed attempt never resumes.
func (o *Orchestrator) NewAttempt(req Request) *Attempt {
	return &Attempt{
		o:   o,
		req: req,
		session: Session{
			AttemptID:    uuid.NewString(),
			ShippingInfo: req.ShippingInfo,
			State:        State{Status: StatusIdle},
		},
	}
}

// Attempt is one run of the order, payment-intent and confirmation sequence.
type Attempt struct {
	o   *Orchestrator
	req Request

	mu      sync.Mutex
	started bool
	session Session
	history []State
	startAt time.Time
}

// ID returns the attempt identifier.
func (a *Attempt) ID() string {
	return a.session.AttemptID
}

// State returns the current state.
func (a *Attempt) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session.State
}

// Session returns a copy of the attempt data.
func (a *Attempt) Session() Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session.clone()
}

// History returns every state entered after idle, in order.
func (a *Attempt) History() []State {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]State, len(a.history))
	copy(out, a.history)
	return out
}

// Run executes the attempt. Phases run strictly in order; each remote call
// completes before the next phase starts. Any error returned is a *PhaseError.
func (a *Attempt) Run(ctx context.Context) (*Result, error) {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout attempt already run")
	}
	a.started = true
	a.startAt = a.o.now()
	a.mu.Unlock()

	o := a.o
	ctx = o.logg.WithAttemptID(ctx, a.ID())

	shopperID, token := "", ""
	if a.req.Shopper != nil {
		shopperID = strings.TrimSpace(a.req.Shopper.ShopperID())
		token = strings.TrimSpace(a.req.Shopper.AccessToken())
	}
	a.mu.Lock()
	a.session.ShopperID = shopperID
	a.mu.Unlock()
	if shopperID == "" || token == "" {
		return nil, a.fail(ctx, PhaseOrderCreation, pkgerrors.New(pkgerrors.CodeUnauthenticated, "shopper session required"))
	}
	ctx = o.logg.WithShopperID(ctx, shopperID)

	if err := a.prepare(); err != nil {
		return nil, a.fail(ctx, PhaseOrderCreation, err)
	}

	release, err := o.lock.Acquire(ctx, shopperID)
	if err != nil {
		return nil, a.fail(ctx, PhaseOrderCreation, err)
	}
	defer release()

	ctx = auth.WithAccessToken(ctx, token)

	// order_creation
	if err := a.enter(ctx, StatusSubmittingOrder); err != nil {
		return nil, a.fail(ctx, PhaseOrderCreation, err)
	}
	var order Order
	err = a.call(ctx, func(callCtx context.Context) error {
		var callErr error
		order, callErr = o.orders.CreateOrder(callCtx, a.session.ShippingInfo)
		return callErr
	})
	if err == nil && strings.TrimSpace(order.ID) == "" {
		err = pkgerrors.New(pkgerrors.CodeServiceRejected, "order service returned no order id")
	}
	if err != nil {
		return nil, a.fail(ctx, PhaseOrderCreation, err)
	}
	a.recordOrder(ctx, order)

	// intent_creation
	if err := a.enter(ctx, StatusCreatingPaymentIntent); err != nil {
		return nil, a.fail(ctx, PhaseIntentCreation, err)
	}
	var intent PaymentIntent
	err = a.call(ctx, func(callCtx context.Context) error {
		var callErr error
		intent, callErr = o.payments.CreateIntent(callCtx, order.ID)
		return callErr
	})
	if err == nil && strings.TrimSpace(intent.ClientSecret) == "" {
		err = pkgerrors.New(pkgerrors.CodeServiceRejected, "payment service returned no client secret")
	}
	if err != nil {
		return nil, a.fail(ctx, PhaseIntentCreation, err)
	}
	a.mu.Lock()
	a.session.PaymentIntentSecret = intent.ClientSecret
	a.session.PaymentIntentID = intent.PaymentIntentID
	if a.session.PaymentIntentID == "" {
		a.session.PaymentIntentID = IntentIDFromSecret(intent.ClientSecret)
	}
	a.mu.Unlock()

	// payment_confirmation
	if err := a.enter(ctx, StatusConfirmingPayment); err != nil {
		return nil, a.fail(ctx, PhasePaymentConfirmation, err)
	}
	var result PaymentResult
	err = a.call(ctx, func(callCtx context.Context) error {
		var callErr error
		result, callErr = o.processor.ConfirmPayment(callCtx, intent.ClientSecret, a.req.PaymentMethodRef)
		return callErr
	})
	if err == nil {
		err = confirmationError(result)
	}
	if err != nil {
		return nil, a.fail(ctx, PhasePaymentConfirmation, err)
	}

	a.transition(ctx, State{Status: StatusSucceeded}, "")
	o.logg.Info(ctx, "checkout.succeeded")

	cleared := true
	if a.req.Cart != nil {
		// Payment is final; a dropped client must not leave a paid cart behind.
		clearCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.callTimeout)
		err := a.req.Cart.Clear(clearCtx)
		cancel()
		if err != nil {
			cleared = false
			o.logg.Error(ctx, "checkout.cart_clear_failed", err)
		}
	}

	sess := a.Session()
	total := sess.DerivedTotal
	if !sess.ServerTotal.IsZero() {
		total = sess.ServerTotal
	}
	return &Result{
		AttemptID:       sess.AttemptID,
		OrderID:         sess.OrderID,
		OrderNumber:     sess.OrderNumber,
		PaymentIntentID: sess.PaymentIntentID,
		Breakdown:       sess.Breakdown,
		Total:           total,
		CartCleared:     cleared,
	}, nil
}

// prepare snapshots the cart and runs every local check. Nothing here
// contacts a service.
func (a *Attempt) prepare() error {
	var items []types.LineItem
	if a.req.Cart != nil {
		items = types.CloneLineItems(a.req.Cart.Items())
	}
	a.mu.Lock()
	a.session.LineItems = items
	a.mu.Unlock()

	if len(items) == 0 {
		return pkgerrors.New(pkgerrors.CodeEmptyCart, "your cart is empty")
	}

	fields, err := validate.Struct(a.req.ShippingInfo)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "validating shipping info")
	}
	if len(fields) > 0 {
		return pkgerrors.New(pkgerrors.CodeInvalidShipping, "please complete all shipping fields").WithDetails(fields)
	}

	if strings.TrimSpace(a.req.PaymentMethodRef) == "" {
		return pkgerrors.New(pkgerrors.CodeInvalidPaymentMethod, "a payment method is required")
	}

	breakdown, err := a.o.pricing.ComputeBreakdown(items)
	if err != nil {
		return err
	}

	lines := make([]stock.Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, stock.Line{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Available: item.Product.StockQuantity,
		})
	}
	if err := stock.ValidateLines(lines); err != nil {
		return err
	}

	a.mu.Lock()
	a.session.Breakdown = breakdown
	a.session.DerivedTotal = breakdown.Total
	a.mu.Unlock()
	return nil
}

func (a *Attempt) recordOrder(ctx context.Context, order Order) {
	a.mu.Lock()
	a.session.OrderID = order.ID
	a.session.OrderNumber = order.OrderNumber
	a.session.ServerTotal = order.Total
	derived := a.session.DerivedTotal
	a.mu.Unlock()

	ctx = a.o.logg.WithField(ctx, "order_id", order.ID)
	if !order.Total.IsZero() && !order.Total.Equal(derived) {
		ctx = a.o.logg.WithFields(ctx, map[string]any{
			"server_total":  order.Total.String(),
			"derived_total": derived.String(),
		})
		a.o.logg.Warn(ctx, "checkout.total_mismatch")
	}
}

// enter moves into a phase state after checking the attempt was not
// cancelled at the phase boundary.
func (a *Attempt) enter(ctx context.Context, status Status) error {
	if err := ctx.Err(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeServiceUnavailable, err, "checkout cancelled").
			WithDetails(map[string]any{"cancelled": true})
	}
	a.transition(ctx, State{Status: status}, "")
	return nil
}

// call runs one remote call under the per-call timeout and normalizes its error.
func (a *Attempt) call(ctx context.Context, fn func(context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, a.o.callTimeout)
	defer cancel()

	err := fn(callCtx)
	if err == nil {
		return nil
	}
	if stdErrors.Is(err, context.DeadlineExceeded) || stdErrors.Is(callCtx.Err(), context.DeadlineExceeded) {
		if !pkgerrors.Is(err, pkgerrors.CodeServiceUnavailable) {
			return pkgerrors.Wrap(pkgerrors.CodeServiceUnavailable, err, "request timed out").
				WithDetails(map[string]any{"timeout": true})
		}
		return err
	}
	if pkgerrors.As(err) == nil {
		return pkgerrors.Wrap(pkgerrors.CodeServiceUnavailable, err, "service call failed")
	}
	return err
}

func (a *Attempt) fail(ctx context.Context, phase Phase, err error) error {
	pe := &PhaseError{Phase: phase, Err: err}
	a.transition(ctx, State{Status: StatusFailed, Phase: phase, Reason: err}, phase)

	ctx = a.o.logg.WithFields(ctx, map[string]any{
		"phase": string(phase),
		"code":  string(pe.Code()),
	})
	if pkgerrors.IsValidation(pe.Code()) {
		a.o.logg.Warn(ctx, "checkout.rejected")
	} else {
		a.o.logg.Error(ctx, "checkout.failed", err)
	}
	return pe
}

func (a *Attempt) transition(ctx context.Context, next State, concluded Phase) {
	a.mu.Lock()
	from := a.session.State.Status
	if !canTransition(from, next.Status) {
		a.mu.Unlock()
		a.o.logg.Error(ctx, "checkout.invalid_transition", fmt.Errorf("%s -> %s", from, next.Status))
		return
	}
	if concluded == "" {
		concluded = from.Phase()
	}
	a.session.State = next
	a.history = append(a.history, next)
	now := a.o.now()
	event := Event{
		AttemptID:       a.session.AttemptID,
		ShopperID:       a.session.ShopperID,
		From:            from,
		To:              next.Status,
		Phase:           concluded,
		OrderID:         a.session.OrderID,
		OrderNumber:     a.session.OrderNumber,
		PaymentIntentID: a.session.PaymentIntentID,
		ShippingInfo:    a.session.ShippingInfo,
		Total:           a.session.DerivedTotal,
		Err:             next.Reason,
		At:              now,
		Elapsed:         now.Sub(a.startAt),
	}
	a.mu.Unlock()

	if phase := next.Status.Phase(); phase != "" {
		a.o.logg.Info(a.o.logg.WithField(ctx, "phase", string(phase)), "checkout.phase")
	}
	for _, obs := range a.o.observers {
		if obs != nil {
			obs.ObserveCheckout(ctx, event)
		}
	}
}

// confirmationError maps a processor result to an error. Only an explicit
// succeeded status counts as success.
func confirmationError(result PaymentResult) error {
	switch result.Status {
	case PaymentSucceeded:
		return nil
	case PaymentRequiresAction:
		return pkgerrors.New(pkgerrors.CodePaymentRequiresAction, "payment requires additional action").
			WithDetails(map[string]any{"status": string(result.Status)})
	}
	msg := strings.TrimSpace(result.Message)
	if msg == "" {
		msg = "Payment was not completed."
	}
	status := string(result.Status)
	if status == "" {
		status = "unknown"
	}
	return pkgerrors.New(pkgerrors.CodePaymentDeclined, msg).
		WithDetails(map[string]any{"status": status})
}

// IntentIDFromSecret derives the payment intent id from a client secret of
// the form "<id>_secret_<nonce>".
func IntentIDFromSecret(secret string) string {
	if idx := strings.Index(secret, "_secret_"); idx > 0 {
		return secret[:idx]
	}
	return ""
}
