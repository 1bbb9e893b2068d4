package airdrop

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/fiatjaf/go-lnurl"
	decodepay "github.com/nbd-wtf/ln-decodepay"
	"zentry/engine/library"
)

// LightningAddresses resolves where an address wants to be paid: a lightning address
// (name@domain) or an LNURL.
type LightningAddresses interface {
	LightningAddress(ctx context.Context, address library.Account) (string, error)
}

// StaticAddressBook is a fixed address to lightning address map.
type StaticAddressBook map[library.Account]string

func (b StaticAddressBook) LightningAddress(_ context.Context, address library.Account) (string, error) {
	la, ok := b[address]
	if !ok {
		return "", fmt.Errorf("lightning address of %s: %w", address, library.ErrNotFound)
	}
	return la, nil
}

// InvoicePayer pays a bolt11 invoice and returns the preimage.
type InvoicePayer interface {
	PayInvoice(ctx context.Context, invoice string) (string, error)
}

// LightningPayout pays claims in sats over LNURL-pay. Campaign amounts are read as sats.
type LightningPayout struct {
	addresses LightningAddresses
	payer     InvoicePayer
	client    *http.Client
}

func NewLightningPayout(addresses LightningAddresses, payer InvoicePayer, client *http.Client) *LightningPayout {
	if client == nil {
		client = http.DefaultClient
	}
	return &LightningPayout{addresses: addresses, payer: payer, client: client}
}

type lnServicePayResponse struct {
	Callback    string `json:"callback"`
	MaxSendable int64  `json:"maxSendable"`
	MinSendable int64  `json:"minSendable"`
	Metadata    string `json:"metadata"`
	Tag         string `json:"tag"`
	Status      string `json:"status"`
	Reason      string `json:"reason"`
}

type lnServiceInvoice struct {
	Pr     string `json:"pr"`
	Status string `json:"status"`
	Reason string `json:"reason"`
}

func (p *LightningPayout) Transfer(ctx context.Context, campaign Campaign, to library.Account, amount *big.Int) (string, error) {
	if !amount.IsInt64() || amount.Int64() <= 0 {
		return "", fmt.Errorf("cannot pay %s sats over lightning", amount)
	}
	msat := amount.Int64() * 1000
	target, err := p.addresses.LightningAddress(ctx, to)
	if err != nil {
		return "", err
	}
	encoded, err := lnurlFor(target)
	if err != nil {
		return "", err
	}
	invoice, err := p.fetchInvoice(ctx, encoded, msat, fmt.Sprintf("%s airdrop for %s", campaign.Name, to))
	if err != nil {
		return "", err
	}
	bolt11, err := decodepay.Decodepay(invoice)
	if err != nil {
		return "", fmt.Errorf("decoding invoice: %w", err)
	}
	if bolt11.MSatoshi != msat {
		return "", fmt.Errorf("invoice is for %d msat, expected %d", bolt11.MSatoshi, msat)
	}
	preimage, err := p.payer.PayInvoice(ctx, invoice)
	if err != nil {
		return "", fmt.Errorf("paying invoice %s: %w", bolt11.PaymentHash, err)
	}
	library.LogCLI(fmt.Sprintf("paid %d msat to %s for campaign %d", msat, target, campaign.ID), 4)
	return "lightning:" + bolt11.PaymentHash + ":" + preimage, nil
}

// lnurlFor turns a lightning address into its LNURL, or passes an LNURL through.
func lnurlFor(target string) (string, error) {
	target = strings.TrimSpace(target)
	if strings.HasPrefix(strings.ToLower(target), "lnurl") {
		return target, nil
	}
	split := strings.Split(target, "@")
	if len(split) != 2 || split[0] == "" || split[1] == "" {
		return "", fmt.Errorf("invalid lightning address %q", target)
	}
	return lnurl.Encode("https://" + split[1] + "/.well-known/lnurlp/" + split[0])
}

func (p *LightningPayout) fetchInvoice(ctx context.Context, encoded string, msat int64, comment string) (string, error) {
	serviceURL, err := lnurl.LNURLDecode(encoded)
	if err != nil {
		return "", fmt.Errorf("decoding lnurl: %w", err)
	}
	var params lnServicePayResponse
	if err := p.getJSON(ctx, serviceURL, &params); err != nil {
		return "", err
	}
	if params.Status == "ERROR" {
		return "", fmt.Errorf("lnurl service: %s", params.Reason)
	}
	if msat < params.MinSendable || (params.MaxSendable > 0 && msat > params.MaxSendable) {
		return "", fmt.Errorf("%d msat outside sendable range [%d, %d]", msat, params.MinSendable, params.MaxSendable)
	}
	callback, err := url.Parse(params.Callback)
	if err != nil {
		return "", fmt.Errorf("bad callback url: %w", err)
	}
	q := callback.Query()
	q.Set("amount", strconv.FormatInt(msat, 10))
	q.Set("comment", strings.TrimSpace(comment))
	callback.RawQuery = q.Encode()
	var invoice lnServiceInvoice
	if err := p.getJSON(ctx, callback.String(), &invoice); err != nil {
		return "", err
	}
	if invoice.Status == "ERROR" || invoice.Pr == "" {
		return "", fmt.Errorf("lnurl callback returned no invoice: %s", invoice.Reason)
	}
	return invoice.Pr, nil
}

func (p *LightningPayout) getJSON(ctx context.Context, u string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", u, resp.StatusCode)
	}
	return json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(out)
}
