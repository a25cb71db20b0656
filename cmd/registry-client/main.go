package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/urfave/cli/v2"

	"github.com/certvault/certificate-registry-backend/api"
	"github.com/certvault/certificate-registry-backend/clients"
	"github.com/certvault/certificate-registry-backend/cmd/flags"
	"github.com/certvault/certificate-registry-backend/interfaces"
)

func main() {
	app := &cli.App{
		Name:  "registry-client",
		Usage: "Interact with the certificate registry server",
		Flags: []cli.Flag{
			flags.ServerAddrFlag,
			&cli.StringFlag{
				Name:  "key",
				Usage: "hex-encoded secp256k1 private key; required for write operations",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "register-issuer",
				Usage: "Register the caller as an issuing institution",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "description"},
				},
				Action: func(cCtx *cli.Context) error {
					c, err := newClient(cCtx, true)
					if err != nil {
						return err
					}
					return c.RegisterIssuer(cCtx.Context, cCtx.String("name"), cCtx.String("description"))
				},
			},
			{
				Name:  "authorize-issuer",
				Usage: "Authorize a registered issuer (owner only)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "issuer", Required: true, Usage: "issuer address, 0x-prefixed hex"},
				},
				Action: func(cCtx *cli.Context) error {
					c, err := newClient(cCtx, true)
					if err != nil {
						return err
					}
					issuer, err := interfaces.NewAccountAddressFromHex(cCtx.String("issuer"))
					if err != nil {
						return err
					}
					return c.AuthorizeIssuer(cCtx.Context, issuer)
				},
			},
			{
				Name:  "issue",
				Usage: "Issue a certificate (authorized issuer only)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "holder", Required: true, Usage: "holder address, 0x-prefixed hex"},
					&cli.StringFlag{Name: "cert-type", Required: true},
					&cli.StringFlag{Name: "title", Required: true},
					&cli.StringFlag{Name: "institution", Required: true},
					&cli.StringFlag{Name: "description"},
					&cli.StringFlag{Name: "metadata-hash", Usage: "content id of the metadata artifact, hex"},
					&cli.UintFlag{Name: "issue-date", Usage: "unix days or application-defined uint32"},
					&cli.UintFlag{Name: "expiry-date"},
					&cli.UintFlag{Name: "score"},
					&cli.UintFlag{Name: "grade"},
				},
				Action: func(cCtx *cli.Context) error {
					c, err := newClient(cCtx, true)
					if err != nil {
						return err
					}

					holder, err := interfaces.NewAccountAddressFromHex(cCtx.String("holder"))
					if err != nil {
						return err
					}

					var metadataHash interfaces.ContentID
					if mh := cCtx.String("metadata-hash"); mh != "" {
						metadataHash, err = interfaces.NewContentIDFromHex(mh)
						if err != nil {
							return err
						}
					}

					certID, err := c.IssueCertificate(cCtx.Context, api.IssueCertificateRequest{
						Holder:       holder,
						CertType:     cCtx.String("cert-type"),
						Title:        cCtx.String("title"),
						Institution:  cCtx.String("institution"),
						Description:  cCtx.String("description"),
						MetadataHash: metadataHash,
						IssueDate:    uint32(cCtx.Uint("issue-date")),
						ExpiryDate:   uint32(cCtx.Uint("expiry-date")),
						Score:        uint32(cCtx.Uint("score")),
						Grade:        uint32(cCtx.Uint("grade")),
					})
					if err != nil {
						return err
					}
					fmt.Println(certID)
					return nil
				},
			},
			{
				Name:  "request-verification",
				Usage: "Open a verification request against a certificate",
				Flags: []cli.Flag{
					&cli.Uint64Flag{Name: "cert-id", Required: true},
					&cli.StringFlag{Name: "verification-hash", Required: true, Usage: "content id of the evidence artifact, hex"},
				},
				Action: func(cCtx *cli.Context) error {
					c, err := newClient(cCtx, true)
					if err != nil {
						return err
					}
					hash, err := interfaces.NewContentIDFromHex(cCtx.String("verification-hash"))
					if err != nil {
						return err
					}
					requestID, err := c.RequestVerification(cCtx.Context, interfaces.CertID(cCtx.Uint64("cert-id")), hash)
					if err != nil {
						return err
					}
					fmt.Println(requestID)
					return nil
				},
			},
			{
				Name:  "process-verification",
				Usage: "Approve or reject a pending verification request (verifier only)",
				Flags: []cli.Flag{
					&cli.Uint64Flag{Name: "request-id", Required: true},
					&cli.BoolFlag{Name: "approve"},
				},
				Action: func(cCtx *cli.Context) error {
					c, err := newClient(cCtx, true)
					if err != nil {
						return err
					}
					return c.ProcessVerification(cCtx.Context, interfaces.RequestID(cCtx.Uint64("request-id")), cCtx.Bool("approve"))
				},
			},
			{
				Name:  "revoke",
				Usage: "Terminally revoke a certificate (issuer or owner only)",
				Flags: []cli.Flag{
					&cli.Uint64Flag{Name: "cert-id", Required: true},
				},
				Action: func(cCtx *cli.Context) error {
					c, err := newClient(cCtx, true)
					if err != nil {
						return err
					}
					return c.RevokeCertificate(cCtx.Context, interfaces.CertID(cCtx.Uint64("cert-id")))
				},
			},
			{
				Name:  "decrypt",
				Usage: "Request a decryption grant and decrypt certificate fields (holder only)",
				Flags: []cli.Flag{
					&cli.Uint64Flag{Name: "cert-id", Required: true},
					&cli.StringFlag{Name: "fields", Usage: "comma-separated field names (score,grade,issueDate,expiryDate); empty means all"},
				},
				Action: func(cCtx *cli.Context) error {
					c, err := newClient(cCtx, true)
					if err != nil {
						return err
					}

					var fields []interfaces.EncryptedField
					if raw := cCtx.String("fields"); raw != "" {
						for _, f := range strings.Split(raw, ",") {
							fields = append(fields, interfaces.EncryptedField(strings.TrimSpace(f)))
						}
					}

					certID := interfaces.CertID(cCtx.Uint64("cert-id"))
					grant, err := c.RequestDecryptionGrant(cCtx.Context, certID, fields)
					if err != nil {
						return err
					}

					values, err := c.Decrypt(cCtx.Context, certID, grant)
					if err != nil {
						return err
					}
					return printJSON(values)
				},
			},
			{
				Name:  "list",
				Usage: "List certificates held by an address",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "holder", Required: true, Usage: "holder address, 0x-prefixed hex"},
				},
				Action: func(cCtx *cli.Context) error {
					c, err := newClient(cCtx, false)
					if err != nil {
						return err
					}
					holder, err := interfaces.NewAccountAddressFromHex(cCtx.String("holder"))
					if err != nil {
						return err
					}
					certs, err := c.ListCertificatesForHolder(cCtx.Context, holder)
					if err != nil {
						return err
					}
					return printJSON(certs)
				},
			},
			{
				Name:  "info",
				Usage: "Fetch the public record of a certificate",
				Flags: []cli.Flag{
					&cli.Uint64Flag{Name: "cert-id", Required: true},
				},
				Action: func(cCtx *cli.Context) error {
					c, err := newClient(cCtx, false)
					if err != nil {
						return err
					}
					cert, err := c.GetCertificateInfo(cCtx.Context, interfaces.CertID(cCtx.Uint64("cert-id")))
					if err != nil {
						return err
					}
					return printJSON(cert)
				},
			},
			{
				Name:  "verify",
				Usage: "Check whether a certificate exists",
				Flags: []cli.Flag{
					&cli.Uint64Flag{Name: "cert-id", Required: true},
				},
				Action: func(cCtx *cli.Context) error {
					c, err := newClient(cCtx, false)
					if err != nil {
						return err
					}
					exists, err := c.VerifyCertificate(cCtx.Context, interfaces.CertID(cCtx.Uint64("cert-id")))
					if err != nil {
						return err
					}
					fmt.Println(exists)
					return nil
				},
			},
			{
				Name:  "upload-document",
				Usage: "Upload a certificate document or metadata artifact",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Required: true},
					&cli.StringFlag{Name: "content-type", Value: "application/pdf"},
					&cli.BoolFlag{Name: "metadata", Usage: "store in the metadata namespace"},
				},
				Action: func(cCtx *cli.Context) error {
					c, err := newClient(cCtx, true)
					if err != nil {
						return err
					}

					data, err := os.ReadFile(cCtx.String("file"))
					if err != nil {
						return err
					}

					kind := interfaces.DocumentKind
					if cCtx.Bool("metadata") {
						kind = interfaces.MetadataKind
					}

					resp, err := c.PutDocument(cCtx.Context, data, cCtx.String("content-type"), kind)
					if err != nil {
						return err
					}
					return printJSON(resp)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newClient(cCtx *cli.Context, needKey bool) (*clients.RegistryClient, error) {
	client := &clients.RegistryClient{
		ServerAddr: cCtx.String(flags.ServerAddrFlag.Name),
	}

	keyHex := strings.TrimPrefix(cCtx.String("key"), "0x")
	if keyHex == "" {
		if needKey {
			return nil, fmt.Errorf("--key is required for this command")
		}
		return client, nil
	}

	key, err := crypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid key: %w", err)
	}
	client.Key = key
	return client, nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
