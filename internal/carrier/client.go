package carrier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/time/rate"

	"github.com/tbourn/merch-order-bot/internal/config"
)

// Client talks to the carrier API. The zero value is not usable; construct
// with NewClient.
type Client struct {
	URL    string
	APIKey string
	HTTP   *http.Client

	// Limiter paces outbound calls; nil disables pacing.
	Limiter *rate.Limiter
	// MaxTries bounds attempts per call, including the first.
	MaxTries uint
	// NewBackOff returns the retry schedule for one call.
	NewBackOff func() backoff.BackOff
}

// NewClient builds a client from configuration.
func NewClient(cfg config.CarrierConfig) *Client {
	rps := cfg.RPS
	if rps <= 0 {
		rps = 1
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &Client{
		URL:    cfg.APIURL,
		APIKey: cfg.APIKey,
		HTTP: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		Limiter:  rate.NewLimiter(rate.Limit(rps), burst),
		MaxTries: 3,
		NewBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			return b
		},
	}
}

// CreateDocument submits a shipment document.
func (c *Client) CreateDocument(ctx context.Context, req DocumentRequest) (Document, error) {
	ctx, span := otel.Tracer("carrier/Client").Start(ctx, "CreateDocument",
		trace.WithAttributes(
			attribute.Bool("carrier.cod", req.CashOnDelivery),
			attribute.Int("carrier.declared_value", req.DeclaredValue),
		),
	)
	defer span.End()

	cost := strconv.Itoa(req.DeclaredValue)
	desc := req.Description
	if desc == "" {
		desc = "Замовлення з бота"
	}
	props := saveProps{
		NewAddress:           "1",
		PayerType:            req.PayerType(),
		PaymentMethod:        "Cash",
		CargoType:            "Cargo",
		VolumeGeneral:        "0.1",
		Weight:               "1",
		ServiceType:          "WarehouseWarehouse",
		SeatsAmount:          "1",
		Description:          desc,
		Cost:                 cost,
		CitySender:           c.city(req.Sender.City),
		SenderAddress:        "відділення " + strings.TrimSpace(req.Sender.Branch),
		SendersPhone:         strings.TrimSpace(req.Sender.Phone),
		Sender:               strings.TrimSpace(req.Sender.Name),
		RecipientName:        strings.TrimSpace(req.Recipient.Name),
		RecipientPhone:       strings.TrimSpace(req.Recipient.Phone),
		RecipientCityName:    "м." + c.city(req.Recipient.City),
		RecipientAddressName: "відділення №" + strings.TrimSpace(req.Recipient.Branch),
		RecipientType:        "PrivatePerson",
	}
	if req.CashOnDelivery {
		props.BackwardDeliveryData = []backwardDelivery{{
			PayerType:        "Recipient",
			CargoType:        "Money",
			RedeliveryString: cost,
		}}
	}

	var resp response[savedDocument]
	if err := c.call(ctx, "InternetDocument", "save", props, &resp); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		return Document{}, err
	}
	if !resp.Success {
		verr := &ValidationError{Messages: append(append([]string{}, resp.Errors...), resp.Warnings...)}
		span.SetStatus(codes.Error, "rejected")
		return Document{}, verr
	}
	if len(resp.Data) == 0 || strings.TrimSpace(resp.Data[0].IntDocNumber) == "" {
		span.SetStatus(codes.Error, "empty")
		return Document{}, &ValidationError{Messages: []string{"no document number in carrier response"}}
	}
	doc := Document{Number: resp.Data[0].IntDocNumber, Ref: resp.Data[0].Ref}
	span.SetAttributes(attribute.String("carrier.tracking", doc.Number))
	return doc, nil
}

// TrackingStatus queries the carrier for a tracking number. Phone may be
// empty; supplying it unlocks extended fields on the carrier side.
func (c *Client) TrackingStatus(ctx context.Context, number, phone string) TrackingStatus {
	ctx, span := otel.Tracer("carrier/Client").Start(ctx, "TrackingStatus",
		trace.WithAttributes(attribute.String("carrier.tracking", number)),
	)
	defer span.End()

	props := trackingProps{Documents: []trackingDocument{{DocumentNumber: number, Phone: phone}}}
	var resp response[trackedDocument]
	if err := c.call(ctx, "TrackingDocument", "getStatusDocuments", props, &resp); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unavailable")
		return TrackingStatus{}
	}
	if !resp.Success || len(resp.Data) == 0 {
		span.SetStatus(codes.Error, "unavailable")
		return TrackingStatus{}
	}
	d := resp.Data[0]
	code, _ := strconv.Atoi(strings.TrimSpace(d.StatusCode))
	st := TrackingStatus{Text: d.Status, Code: code, Available: d.Status != "" || code != 0}
	span.SetAttributes(attribute.Int("carrier.status_code", code))
	return st
}

// errTransient marks a failure worth retrying.
var errTransient = errors.New("transient carrier failure")

// call posts one API request and decodes the envelope into out. Network
// errors, 429 and 5xx responses are retried; anything else is final.
func (c *Client) call(ctx context.Context, model, method string, props, out any) error {
	body, err := json.Marshal(request{
		APIKey:           c.APIKey,
		ModelName:        model,
		CalledMethod:     method,
		MethodProperties: props,
	})
	if err != nil {
		return err
	}
	callID := uuid.NewString()
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("carrier.call_id", callID))

	op := func() (struct{}, error) {
		if c.Limiter != nil {
			if err := c.Limiter.Wait(ctx); err != nil {
				return struct{}{}, backoff.Permanent(err)
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Request-ID", callID)

		res, err := c.HTTP.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return struct{}{}, backoff.Permanent(ctx.Err())
			}
			return struct{}{}, fmt.Errorf("%w: %v", errTransient, err)
		}
		defer res.Body.Close()

		if res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= 500 {
			_, _ = io.Copy(io.Discard, res.Body)
			return struct{}{}, fmt.Errorf("%w: http %d", errTransient, res.StatusCode)
		}
		if res.StatusCode != http.StatusOK {
			return struct{}{}, backoff.Permanent(fmt.Errorf("carrier http %d", res.StatusCode))
		}
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			return struct{}{}, backoff.Permanent(fmt.Errorf("decode carrier response: %w", err))
		}
		return struct{}{}, nil
	}

	opts := []backoff.RetryOption{backoff.WithMaxTries(c.maxTries())}
	if c.NewBackOff != nil {
		opts = append(opts, backoff.WithBackOff(c.NewBackOff()))
	}
	_, err = backoff.Retry(ctx, op, opts...)
	return err
}

func (c *Client) maxTries() uint {
	if c.MaxTries == 0 {
		return 1
	}
	return c.MaxTries
}

// city normalises a user-typed city name ("м. київ " -> "Київ").
func (c *Client) city(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimPrefix(s, "м."))
	if s == "" {
		return s
	}
	// Casers hold state, so each call gets its own.
	return cases.Title(language.Ukrainian).String(strings.ToLower(s))
}
