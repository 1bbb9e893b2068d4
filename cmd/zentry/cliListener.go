package main

import (
	"context"
	"fmt"

	"github.com/eiannone/keyboard"
	"github.com/nbd-wtf/go-nostr/nip19"
	"zentry/reputation"
)

// cliListener is a cheap and nasty way to inspect local state during development. It listens for
// keypresses and executes commands until q closes interrupt.
func cliListener(ctx context.Context, interrupt chan struct{}, a *app) {
	fmt.Println("VIEW CURRENT STATE:\np: stored profiles\nc: config\nw: issuer wallet\nr: re-score every stored address\nq: to quit\nSee cliListener.go for more")
	for {
		r, k, err := keyboard.GetSingleKey()
		if err != nil {
			fmt.Println(err)
			close(interrupt)
			return
		}
		str := string(r)
		switch str {
		default:
			if k == keyboard.KeyEnter {
				fmt.Println("\n-----------------------------------")
				break
			}
			if r == 0 {
				break
			}
			fmt.Println("Key " + str + " is not bound to anything. See cliListener.go for more details.")
		case "p":
			addresses, err := a.store.Addresses(ctx)
			if err != nil {
				fmt.Println(err)
				break
			}
			for _, address := range addresses {
				p, err := a.store.Get(ctx, address)
				if err != nil {
					fmt.Println(err)
					continue
				}
				s := p.ReputationScore
				fmt.Printf("\nADDRESS: %s\nOverall: %d Trust: %d Governance: %d Technical: %d Community: %d\nProof: %s\nIdentities: %d History: %d Updated: %s\n",
					address, s.Overall, s.Trustworthiness, s.Governance, s.Technical, s.Community, p.ProofHash, len(p.Identities), len(p.History), p.LastUpdated)
			}
			fmt.Printf("\n%d profiles\n", len(addresses))
		case "c":
			fmt.Println("CURRENT CONFIG")
			for k, v := range a.conf.AllSettings() {
				fmt.Printf("\nKey: %s; Value: %v\n", k, v)
			}
		case "w":
			npub, err := nip19.EncodePublicKey(a.wallet.Account)
			if err != nil {
				fmt.Println(err)
			}
			fmt.Printf("Issuer Wallet: \n%s\n%s\n", a.wallet.Account, npub)
		case "r":
			n := reputation.NewRescorer(a.service, 0).Run(ctx)
			fmt.Printf("re-scored %d addresses\n", n)
		case "q":
			close(interrupt)
			return
		}
	}
}
