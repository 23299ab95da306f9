// Package carrier is the shipment client for the Nova Poshta JSON API.
//
// It exposes two operations:
//
//   - CreateDocument submits a shipment document and returns its tracking
//     number. When the carrier refuses the document, the error is a
//     *ValidationError carrying the carrier's messages, so callers can show
//     them and fall back to manual entry.
//   - TrackingStatus queries a tracking number. It never returns an error:
//     any transport or decoding failure yields a status with Available=false,
//     which must never be read as a delivery confirmation.
//
// All calls go through one HTTP client instrumented with otelhttp, are paced
// by a token-bucket limiter, and retry transient failures with exponential
// backoff.
package carrier

import (
	"encoding/json"
	"sort"
	"strings"
)

// ReceivedPhrase is the status text the carrier uses once the recipient has
// collected the parcel.
const ReceivedPhrase = "Відправлення отримано"

// receivedCodes are carrier status codes meaning the parcel reached the
// recipient (9: received, 10: received and cash-on-delivery pending,
// 11: received and cash-on-delivery paid out).
var receivedCodes = map[int]bool{9: true, 10: true, 11: true}

// Party is one side of a shipment.
type Party struct {
	Name   string
	Phone  string
	City   string
	Branch string // carrier warehouse number
}

// DocumentRequest describes a shipment document.
//
// CashOnDelivery makes the recipient pay for delivery and adds a reverse
// payment of DeclaredValue collected at the branch. Otherwise the sender pays.
type DocumentRequest struct {
	Recipient      Party
	Sender         Party
	DeclaredValue  int
	CashOnDelivery bool
	Description    string
}

// PayerType returns the carrier payer for the request.
func (r DocumentRequest) PayerType() string {
	if r.CashOnDelivery {
		return "Recipient"
	}
	return "Sender"
}

// Document is a created shipment document.
type Document struct {
	Number string // tracking number (IntDocNumber)
	Ref    string
}

// ValidationError is returned when the carrier rejects a request.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	if len(e.Messages) == 0 {
		return "carrier rejected the request"
	}
	return "carrier rejected the request: " + strings.Join(e.Messages, ", ")
}

// TrackingStatus is the carrier's view of a tracking number.
type TrackingStatus struct {
	Text      string
	Code      int
	Available bool
}

// Received reports whether the parcel has reached the recipient. The numeric
// code wins; the phrase is only consulted when no code was reported.
func (s TrackingStatus) Received() bool {
	if !s.Available {
		return false
	}
	if s.Code != 0 {
		return receivedCodes[s.Code]
	}
	return strings.Contains(s.Text, ReceivedPhrase)
}

// ----------------------------------------------------------------------------
// Wire format

type request struct {
	APIKey           string `json:"apiKey"`
	ModelName        string `json:"modelName"`
	CalledMethod     string `json:"calledMethod"`
	MethodProperties any    `json:"methodProperties"`
}

type response[T any] struct {
	Success  bool     `json:"success"`
	Data     []T      `json:"data"`
	Errors   messages `json:"errors"`
	Warnings messages `json:"warnings"`
}

// messages accepts both the documented array of strings and the object form
// ({"1": "text"}) the API returns for some failures.
type messages []string

func (m *messages) UnmarshalJSON(b []byte) error {
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		*m = list
		return nil
	}
	var obj map[string]string
	if err := json.Unmarshal(b, &obj); err != nil {
		*m = nil
		return nil
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	// Numeric keys sort by length first so "10" follows "9".
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) < len(keys[j])
		}
		return keys[i] < keys[j]
	})
	out := make([]string, 0, len(obj))
	for _, k := range keys {
		out = append(out, obj[k])
	}
	*m = out
	return nil
}

type backwardDelivery struct {
	PayerType        string `json:"PayerType"`
	CargoType        string `json:"CargoType"`
	RedeliveryString string `json:"RedeliveryString"`
}

type saveProps struct {
	NewAddress           string             `json:"NewAddress"`
	PayerType            string             `json:"PayerType"`
	PaymentMethod        string             `json:"PaymentMethod"`
	CargoType            string             `json:"CargoType"`
	VolumeGeneral        string             `json:"VolumeGeneral"`
	Weight               string             `json:"Weight"`
	ServiceType          string             `json:"ServiceType"`
	SeatsAmount          string             `json:"SeatsAmount"`
	Description          string             `json:"Description"`
	Cost                 string             `json:"Cost"`
	CitySender           string             `json:"CitySender"`
	SenderAddress        string             `json:"SenderAddress"`
	SendersPhone         string             `json:"SendersPhone"`
	Sender               string             `json:"Sender"`
	RecipientName        string             `json:"RecipientName"`
	RecipientPhone       string             `json:"RecipientPhone"`
	RecipientCityName    string             `json:"RecipientCityName"`
	RecipientAddressName string             `json:"RecipientAddressName"`
	RecipientType        string             `json:"RecipientType"`
	BackwardDeliveryData []backwardDelivery `json:"BackwardDeliveryData,omitempty"`
}

type savedDocument struct {
	Ref          string `json:"Ref"`
	IntDocNumber string `json:"IntDocNumber"`
}

type trackingDocument struct {
	DocumentNumber string `json:"DocumentNumber"`
	Phone          string `json:"Phone"`
}

type trackingProps struct {
	Documents []trackingDocument `json:"Documents"`
}

type trackedDocument struct {
	Number     string `json:"Number"`
	Status     string `json:"Status"`
	StatusCode string `json:"StatusCode"`
}
