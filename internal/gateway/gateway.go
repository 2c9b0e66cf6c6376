// Package gateway holds the payment gateway and payout rail collaborators.
// Both are simulated: real provider integration is handled outside this service.
package gateway

import (
	"context"
	"fmt"
	"sync"

	"github.com/KidRide/kidride-backend/logger"
	"github.com/KidRide/kidride-backend/types"
	"github.com/google/uuid"
)

// ChargeResult is the gateway's answer to a charge attempt.
type ChargeResult struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transactionId,omitempty"`
	Message       string `json:"message,omitempty"`
}

// PaymentGateway charges a customer. A non-nil error means the call itself
// failed; a declined charge is reported through ChargeResult.Success.
type PaymentGateway interface {
	Charge(ctx context.Context, amount int64, customer types.CustomerInfo) (ChargeResult, error)
}

// TransferResult is the payout rail's answer to one driver transfer.
type TransferResult struct {
	Success      bool   `json:"success"`
	Reference    string `json:"reference,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// PayoutRail moves money to a driver's bank account.
type PayoutRail interface {
	Transfer(ctx context.Context, driverID string, amount int64) (TransferResult, error)
}

// SimulatedGateway approves every positive charge unless the customer is on
// the decline list.
type SimulatedGateway struct {
	mu       sync.Mutex
	declined map[string]string
	charges  []int64
}

var _ PaymentGateway = (*SimulatedGateway)(nil)

func NewSimulatedGateway() *SimulatedGateway {
	return &SimulatedGateway{declined: make(map[string]string)}
}

// Decline makes every charge for userID fail with message.
func (g *SimulatedGateway) Decline(userID, message string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.declined[userID] = message
}

// Charges returns the amounts charged successfully so far.
func (g *SimulatedGateway) Charges() []int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]int64(nil), g.charges...)
}

func (g *SimulatedGateway) Charge(ctx context.Context, amount int64, customer types.CustomerInfo) (ChargeResult, error) {
	if err := ctx.Err(); err != nil {
		return ChargeResult{}, err
	}
	if amount <= 0 {
		return ChargeResult{Success: false, Message: fmt.Sprintf("invalid amount %d", amount)}, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if msg, ok := g.declined[customer.UserID]; ok {
		return ChargeResult{Success: false, Message: msg}, nil
	}
	g.charges = append(g.charges, amount)

	ref := "pay_" + uuid.NewString()
	logger.GetLogger().Named("gateway").Debugw("Simulated charge approved",
		"amount", amount, "userId", customer.UserID, "reference", ref)
	return ChargeResult{Success: true, TransactionID: ref, Message: "approved"}, nil
}

// SimulatedRail approves every transfer except for denied drivers.
type SimulatedRail struct {
	mu        sync.Mutex
	denied    map[string]bool
	transfers map[string]int64
}

var _ PayoutRail = (*SimulatedRail)(nil)

func NewSimulatedRail(deniedDrivers ...string) *SimulatedRail {
	r := &SimulatedRail{denied: make(map[string]bool), transfers: make(map[string]int64)}
	for _, id := range deniedDrivers {
		r.denied[id] = true
	}
	return r
}

// Deny makes transfers to driverID fail.
func (r *SimulatedRail) Deny(driverID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.denied[driverID] = true
}

// Transferred returns the total amount sent to driverID.
func (r *SimulatedRail) Transferred(driverID string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transfers[driverID]
}

func (r *SimulatedRail) Transfer(ctx context.Context, driverID string, amount int64) (TransferResult, error) {
	if err := ctx.Err(); err != nil {
		return TransferResult{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.denied[driverID] {
		return TransferResult{Success: false, ErrorMessage: "bank account rejected transfer"}, nil
	}
	if amount <= 0 {
		return TransferResult{Success: false, ErrorMessage: fmt.Sprintf("invalid amount %d", amount)}, nil
	}
	r.transfers[driverID] += amount
	return TransferResult{Success: true, Reference: "po_" + uuid.NewString()}, nil
}
