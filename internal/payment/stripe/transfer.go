package stripe

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// TransferInput Connect 转账输入
type TransferInput struct {
	PayoutID    uint
	Amount      string
	Currency    string
	Destination string
}

// TransferResult Connect 转账结果
type TransferResult struct {
	TransferID string `json:"id"`
}

// CreateTransfer 向推广者的 Connect 账户转账；同一结算单重试时复用幂等键
func (c *Client) CreateTransfer(ctx context.Context, input TransferInput) (*TransferResult, error) {
	if err := c.requireKey(); err != nil {
		return nil, err
	}
	destination := strings.TrimSpace(input.Destination)
	if destination == "" {
		return nil, fmt.Errorf("%w: destination is required", ErrConfigInvalid)
	}
	currency := normalizeCurrency(input.Currency, c.cfg.Currency)
	amount, err := toMinorAmount(input.Amount, currency)
	if err != nil {
		return nil, err
	}

	payoutID := strconv.FormatUint(uint64(input.PayoutID), 10)
	form := url.Values{
		"amount":              {strconv.FormatInt(amount, 10)},
		"currency":            {strings.ToLower(currency)},
		"destination":         {destination},
		"transfer_group":      {"affiliate_payout_" + payoutID},
		"metadata[payout_id]": {payoutID},
	}
	var result TransferResult
	if err := c.post(ctx, "/v1/transfers", form, "affiliate-payout-"+payoutID, &result); err != nil {
		return nil, err
	}
	if result.TransferID == "" {
		return nil, fmt.Errorf("%w: transfer without id", ErrResponseInvalid)
	}
	return &result, nil
}
