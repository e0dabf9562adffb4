// Command paynet-cli is the operator CLI for a running paynetd node:
// it issues plain HTTP requests against the node's JSON RPC surface
// and prints the decoded response. Grounded on cmd/mint/mint-cli's
// urfave/cli/v2 command table and net/http request pattern in the
// teacher.
package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/paynet-xyz/paynet-mint/nut/nut02"
	"github.com/paynet-xyz/paynet-mint/nut/nut04"
	"github.com/paynet-xyz/paynet-mint/nut/nut05"
	"github.com/paynet-xyz/paynet-mint/nut/nut06"
	"github.com/paynet-xyz/paynet-mint/nut/nut07"
	"github.com/paynet-xyz/paynet-mint/wad"
)

// wadProofJSON is the human-editable JSON shape decode-wad prints and
// encode-wad reads: wad.Proof with its id/C rendered as hex instead of
// raw bytes.
type wadProofJSON struct {
	Amount uint64 `json:"amount"`
	ID     string `json:"id"`
	Secret string `json:"secret"`
	C      string `json:"C"`
}

type wadJSON struct {
	NodeURL string         `json:"node_url"`
	Unit    string         `json:"unit"`
	Proofs  []wadProofJSON `json:"proofs"`
}

func main() {
	app := &cli.App{
		Name:  "paynet-cli",
		Usage: "operate a running paynetd node",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "node", Value: "http://127.0.0.1:3338", Usage: "base URL of the paynetd node"},
		},
		Commands: []*cli.Command{
			{
				Name:  "info",
				Usage: "print node info",
				Action: func(c *cli.Context) error {
					var info nut06.Info
					if err := getJSON(c.String("node"), "/v1/info", &info); err != nil {
						return err
					}
					return printJSON(info)
				},
			},
			{
				Name:  "keysets",
				Usage: "list keysets",
				Action: func(c *cli.Context) error {
					var resp nut02.GetKeysetsResponse
					if err := getJSON(c.String("node"), "/v1/keysets", &resp); err != nil {
						return err
					}
					return printJSON(resp)
				},
			},
			{
				Name:      "mintquote",
				Usage:     "request a mint quote",
				ArgsUsage: "<unit> <amount>",
				Action: func(c *cli.Context) error {
					if c.Args().Len() != 2 {
						return fmt.Errorf("usage: mintquote <unit> <amount>")
					}
					var amount uint64
					if _, err := fmt.Sscanf(c.Args().Get(1), "%d", &amount); err != nil {
						return fmt.Errorf("invalid amount: %w", err)
					}
					req := nut04.PostMintQuoteRequest{Unit: c.Args().Get(0), Amount: amount}
					var resp nut04.PostMintQuoteResponse
					if err := postJSON(c.String("node"), "/v1/mint/quote", req, &resp); err != nil {
						return err
					}
					return printJSON(resp)
				},
			},
			{
				Name:      "mintquote-state",
				Usage:     "check a mint quote's state",
				ArgsUsage: "<quote_id>",
				Action: func(c *cli.Context) error {
					if c.Args().Len() != 1 {
						return fmt.Errorf("usage: mintquote-state <quote_id>")
					}
					var resp nut04.PostMintQuoteResponse
					if err := getJSON(c.String("node"), "/v1/mint/quote/"+c.Args().Get(0), &resp); err != nil {
						return err
					}
					return printJSON(resp)
				},
			},
			{
				Name:      "meltquote",
				Usage:     "request a melt quote",
				ArgsUsage: "<unit> <destination> <amount>",
				Action: func(c *cli.Context) error {
					if c.Args().Len() != 3 {
						return fmt.Errorf("usage: meltquote <unit> <destination> <amount>")
					}
					var amount uint64
					if _, err := fmt.Sscanf(c.Args().Get(2), "%d", &amount); err != nil {
						return fmt.Errorf("invalid amount: %w", err)
					}
					req := nut05.PostMeltQuoteRequest{Unit: c.Args().Get(0), Destination: c.Args().Get(1), Amount: amount}
					var resp nut05.PostMeltQuoteResponse
					if err := postJSON(c.String("node"), "/v1/melt/quote", req, &resp); err != nil {
						return err
					}
					return printJSON(resp)
				},
			},
			{
				Name:      "meltquote-state",
				Usage:     "check a melt quote's state",
				ArgsUsage: "<quote_id>",
				Action: func(c *cli.Context) error {
					if c.Args().Len() != 1 {
						return fmt.Errorf("usage: meltquote-state <quote_id>")
					}
					var resp nut05.PostMeltQuoteResponse
					if err := getJSON(c.String("node"), "/v1/melt/quote/"+c.Args().Get(0), &resp); err != nil {
						return err
					}
					return printJSON(resp)
				},
			},
			{
				Name:      "decode-wad",
				Usage:     "decode a paynet-prefixed wad into JSON",
				ArgsUsage: "<wad-string>",
				Action: func(c *cli.Context) error {
					if c.Args().Len() != 1 {
						return fmt.Errorf("usage: decode-wad <wad-string>")
					}
					w, err := wad.Decode(c.Args().Get(0))
					if err != nil {
						return err
					}
					return printJSON(wadToJSON(w))
				},
			},
			{
				Name:      "encode-wad",
				Usage:     "encode a JSON wad (from a file, or - for stdin) into its wire form",
				ArgsUsage: "<file>",
				Action: func(c *cli.Context) error {
					if c.Args().Len() != 1 {
						return fmt.Errorf("usage: encode-wad <file>")
					}
					var r io.Reader
					if c.Args().Get(0) == "-" {
						r = os.Stdin
					} else {
						f, err := os.Open(c.Args().Get(0))
						if err != nil {
							return err
						}
						defer f.Close()
						r = f
					}

					var wj wadJSON
					if err := json.NewDecoder(r).Decode(&wj); err != nil {
						return fmt.Errorf("decoding wad json: %w", err)
					}
					w, err := wadFromJSON(wj)
					if err != nil {
						return err
					}
					encoded, err := wad.Encode(w)
					if err != nil {
						return err
					}
					fmt.Println(encoded)
					return nil
				},
			},
			{
				Name:  "checkstate",
				Usage: "check the spend state of Y values",
				Action: func(c *cli.Context) error {
					req := nut07.PostCheckStateRequest{Ys: c.Args().Slice()}
					var resp nut07.PostCheckStateResponse
					if err := postJSON(c.String("node"), "/v1/checkstate", req, &resp); err != nil {
						return err
					}
					return printJSON(resp)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "paynet-cli:", err)
		os.Exit(1)
	}
}

func getJSON(base, path string, dst any) error {
	resp, err := http.Get(base + path)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()
	return decodeOrErr(resp, dst)
}

func postJSON(base, path string, body, dst any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	resp, err := http.Post(base+path, "application/json", bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()
	return decodeOrErr(resp, dst)
}

func decodeOrErr(resp *http.Response, dst any) error {
	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("node returned %s: %s", resp.Status, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

func wadToJSON(w wad.Wad) wadJSON {
	out := wadJSON{NodeURL: w.NodeURL, Unit: w.Unit, Proofs: make([]wadProofJSON, len(w.Proofs))}
	for i, p := range w.Proofs {
		out.Proofs[i] = wadProofJSON{
			Amount: p.Amount,
			ID:     hex.EncodeToString(p.ID),
			Secret: p.Secret,
			C:      p.CHex(),
		}
	}
	return out
}

func wadFromJSON(wj wadJSON) (wad.Wad, error) {
	out := wad.Wad{NodeURL: wj.NodeURL, Unit: wj.Unit, Proofs: make([]wad.Proof, len(wj.Proofs))}
	for i, p := range wj.Proofs {
		id, err := hex.DecodeString(p.ID)
		if err != nil {
			return wad.Wad{}, fmt.Errorf("decoding proof id: %w", err)
		}
		c, err := hex.DecodeString(p.C)
		if err != nil {
			return wad.Wad{}, fmt.Errorf("decoding proof C: %w", err)
		}
		out.Proofs[i] = wad.Proof{Amount: p.Amount, ID: id, Secret: p.Secret, C: c}
	}
	return out, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
