package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/stellar/go/txnbuild"
	"github.com/stellar/go/xdr"
)

// ErrAccountNotFound is returned by GetAccount when the ledger has no entry
// for the requested account.
var ErrAccountNotFound = errors.New("account not found")

// GetAccount resolves an account's current sequence number through a
// getLedgerEntries lookup of the account ledger key.
func (c *Client) GetAccount(ctx context.Context, publicKey string) (*txnbuild.SimpleAccount, error) {
	accountID, err := xdr.AddressToAccountId(publicKey)
	if err != nil {
		return nil, fmt.Errorf("invalid account address %q: %w", publicKey, err)
	}
	key := xdr.LedgerKey{
		Type:    xdr.LedgerEntryTypeAccount,
		Account: &xdr.LedgerKeyAccount{AccountId: accountID},
	}
	keyB64, err := xdr.MarshalBase64(key)
	if err != nil {
		return nil, fmt.Errorf("could not marshal account ledger key: %w", err)
	}

	var response GetLedgerEntriesResponse
	err = c.CallResult(ctx, "getLedgerEntries", GetLedgerEntriesRequest{Keys: []string{keyB64}}, &response)
	if err != nil {
		return nil, fmt.Errorf("could not fetch account entry: %w", err)
	}
	if len(response.Entries) == 0 {
		return nil, ErrAccountNotFound
	}

	var entry xdr.LedgerEntryData
	if err := xdr.SafeUnmarshalBase64(response.Entries[0].DataXDR, &entry); err != nil {
		return nil, fmt.Errorf("could not unmarshal account entry: %w", err)
	}
	account, ok := entry.GetAccount()
	if !ok {
		return nil, fmt.Errorf("unexpected ledger entry type %v for account key", entry.Type)
	}

	return &txnbuild.SimpleAccount{
		AccountID: publicKey,
		Sequence:  int64(account.SeqNum),
	}, nil
}
