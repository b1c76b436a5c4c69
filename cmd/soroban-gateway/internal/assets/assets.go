// Package assets builds classic Stellar operations (trustlines, payments)
// that ride the same sign/submit/confirm pipeline as contract invocations.
package assets

import (
	"errors"
	"fmt"

	"github.com/stellar/go/strkey"
	"github.com/stellar/go/txnbuild"
)

// Asset identifies a Stellar asset. A zero Code means the native asset (XLM).
type Asset struct {
	Code   string
	Issuer string
}

func (a Asset) native() bool {
	return a.Code == ""
}

func (a Asset) toTxnbuild() (txnbuild.Asset, error) {
	if a.native() {
		return txnbuild.NativeAsset{}, nil
	}
	if !strkey.IsValidEd25519PublicKey(a.Issuer) {
		return nil, fmt.Errorf("invalid asset issuer %q", a.Issuer)
	}
	return txnbuild.CreditAsset{Code: a.Code, Issuer: a.Issuer}, nil
}

// ChangeTrustOp builds a trustline operation for a credit asset. An empty
// limit means the maximum representable limit.
func ChangeTrustOp(asset Asset, limit string) (*txnbuild.ChangeTrust, error) {
	if asset.native() {
		return nil, errors.New("cannot create a trustline for the native asset")
	}
	line, err := asset.toTxnbuild()
	if err != nil {
		return nil, err
	}
	changeTrustAsset, err := line.ToChangeTrustAsset()
	if err != nil {
		return nil, err
	}
	if limit == "" {
		limit = txnbuild.MaxTrustlineLimit
	}
	return &txnbuild.ChangeTrust{Line: changeTrustAsset, Limit: limit}, nil
}

// PaymentOp builds a payment of amount asset units to destination.
func PaymentOp(destination string, asset Asset, amount string) (*txnbuild.Payment, error) {
	if !strkey.IsValidEd25519PublicKey(destination) {
		return nil, fmt.Errorf("invalid payment destination %q", destination)
	}
	if amount == "" {
		return nil, errors.New("missing payment amount")
	}
	txAsset, err := asset.toTxnbuild()
	if err != nil {
		return nil, err
	}
	return &txnbuild.Payment{Destination: destination, Amount: amount, Asset: txAsset}, nil
}
