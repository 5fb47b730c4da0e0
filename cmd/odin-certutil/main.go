// Command odin-certutil drives the cert lifecycle from the command line:
// generate a keypair, create any of the five cert variants (with
// multi-sig where the threshold calls for it), export the image, load
// and validate it, check it against an embedding target, and verify its
// signatures.
package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"odin.dev/model/cert"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "usage: odin-certutil <genkey|create|inspect|validate|validate-target|verify> [flags]")
		return 2
	}
	switch args[0] {
	case "genkey":
		return runGenkey(args[1:], stdout, stderr)
	case "create":
		return runCreate(args[1:], stdout, stderr)
	case "inspect":
		return runInspect(args[1:], stdout, stderr)
	case "validate":
		return runValidate(args[1:], stdout, stderr)
	case "validate-target":
		return runValidateTarget(args[1:], stdout, stderr)
	case "verify":
		return runVerify(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "unknown subcommand %q\n", args[0])
		return 2
	}
}

func runGenkey(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("genkey", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		fmt.Fprintf(stderr, "genkey failed: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "public_key: %s\n", hex.EncodeToString(pub))
	fmt.Fprintf(stdout, "private_key: %s\n", hex.EncodeToString(priv))
	return 0
}

func runCreate(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	fs.SetOutput(stderr)
	certType := fs.String("type", "chain", "cert variant: chain, friend, license, data, auth")
	ownerFlag := fs.String("owner", "", "hex-encoded owner public key")
	var targets multiStringFlag
	fs.Var(&targets, "target-key", "hex-encoded target public key (repeatable)")
	var signerPubs, signerPrivs multiStringFlag
	fs.Var(&signerPubs, "signer-pub", "hex-encoded signer public key (repeatable, paired with -signer-priv)")
	fs.Var(&signerPrivs, "signer-priv", "hex-encoded signer private key (repeatable, paired with -signer-pub)")
	threshold := fs.Uint("threshold", 1, "multiSigThreshold")
	creation := fs.Uint64("creation-time", 0, "creationTime")
	expire := fs.Uint64("expire-time", 0, "expireTime")
	maxChainLength := fs.Uint("max-chain-length", 1, "maxChainLength")
	embed := fs.String("embed", "", "file holding the hex image of a cert to embed")
	constraintsFlag := fs.String("constraints", "", "hex-encoded 32-byte constraints")
	otherIssuer := fs.String("other-issuer", "", "hex-encoded peer issuer public key (friend)")
	maxExtensions := fs.Uint("max-extensions", 0, "maxExtensions (license)")
	terms := fs.String("terms", "", "license terms (license)")
	contentType := fs.String("content-type", "", "content type (data)")
	authKey := fs.String("auth-public-key", "", "hex-encoded asserted public key (auth)")
	region := fs.String("region", "", "region (auth)")
	jurisdiction := fs.String("jurisdiction", "", "jurisdiction (auth)")
	out := fs.String("out", "", "output file for the exported cert image (default: stdout hex)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if len(targets) == 0 || len(signerPubs) == 0 {
		fmt.Fprintln(stderr, "create requires at least one -target-key and one -signer-pub/-signer-priv pair")
		return 2
	}
	if len(signerPubs) != len(signerPrivs) {
		fmt.Fprintln(stderr, "-signer-pub and -signer-priv must be given the same number of times")
		return 2
	}

	keys, code := decodeKeyList(targets, "-target-key", stderr)
	if code != 0 {
		return code
	}
	signers := make([]cert.KeyPair, 0, len(signerPubs))
	for i := range signerPubs {
		pub, err := hex.DecodeString(signerPubs[i])
		if err != nil {
			fmt.Fprintf(stderr, "invalid -signer-pub %q: %v\n", signerPubs[i], err)
			return 2
		}
		priv, err := hex.DecodeString(signerPrivs[i])
		if err != nil {
			fmt.Fprintf(stderr, "invalid -signer-priv: %v\n", err)
			return 2
		}
		signers = append(signers, cert.KeyPair{PublicKey: cert.PublicKey(pub), PrivateKey: priv})
	}

	base := cert.BaseParams{
		TargetPublicKeys:  keys,
		MultiSigThreshold: uint8(*threshold),
		CreationTime:      *creation,
		ExpireTime:        *expire,
		MaxChainLength:    uint8(*maxChainLength),
	}
	if *ownerFlag != "" {
		owner, err := hex.DecodeString(*ownerFlag)
		if err != nil {
			fmt.Fprintf(stderr, "invalid -owner: %v\n", err)
			return 2
		}
		base.Owner = cert.PublicKey(owner)
	}
	if *embed != "" {
		img, code := readImage(*embed, stderr)
		if code != 0 {
			return code
		}
		base.EmbeddedCert = img
	}
	if *constraintsFlag != "" {
		raw, err := hex.DecodeString(*constraintsFlag)
		if err != nil || len(raw) != 32 {
			fmt.Fprintln(stderr, "-constraints must be 32 hex-encoded bytes")
			return 2
		}
		var c [32]byte
		copy(c[:], raw)
		base.Constraints = &c
	}

	var c cert.Cert
	var err error
	switch *certType {
	case "chain":
		c, err = cert.CreateChainCert(nil, base, signers...)
	case "friend":
		if *otherIssuer == "" {
			fmt.Fprintln(stderr, "create -type friend requires -other-issuer")
			return 2
		}
		peer, derr := hex.DecodeString(*otherIssuer)
		if derr != nil {
			fmt.Fprintf(stderr, "invalid -other-issuer: %v\n", derr)
			return 2
		}
		c, err = cert.CreateFriendCert(nil, cert.FriendParams{
			BaseParams:           base,
			OtherIssuerPublicKey: cert.PublicKey(peer),
		}, signers...)
	case "license":
		c, err = cert.CreateLicenseCert(nil, cert.LicenseParams{
			BaseParams:    base,
			MaxExtensions: uint32(*maxExtensions),
			Terms:         *terms,
		}, signers...)
	case "data":
		c, err = cert.CreateDataCert(nil, cert.DataParams{
			BaseParams:  base,
			ContentType: *contentType,
		}, signers...)
	case "auth":
		if *authKey == "" {
			fmt.Fprintln(stderr, "create -type auth requires -auth-public-key")
			return 2
		}
		asserted, derr := hex.DecodeString(*authKey)
		if derr != nil {
			fmt.Fprintf(stderr, "invalid -auth-public-key: %v\n", derr)
			return 2
		}
		c, err = cert.CreateAuthCert(nil, cert.AuthParams{
			BaseParams:   base,
			PublicKey:    cert.PublicKey(asserted),
			Region:       *region,
			Jurisdiction: *jurisdiction,
		}, signers...)
	default:
		fmt.Fprintf(stderr, "unknown cert type %q\n", *certType)
		return 2
	}
	if err != nil {
		fmt.Fprintf(stderr, "create failed: %v\n", err)
		return 1
	}

	img, err := c.Export(false)
	if err != nil {
		fmt.Fprintf(stderr, "export failed: %v\n", err)
		return 1
	}
	if *out == "" {
		fmt.Fprintln(stdout, hex.EncodeToString(img))
		return 0
	}
	if err := os.WriteFile(*out, []byte(hex.EncodeToString(img)), 0o600); err != nil {
		fmt.Fprintf(stderr, "write failed: %v\n", err)
		return 1
	}
	return 0
}

func runInspect(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	fs.SetOutput(stderr)
	in := fs.String("in", "", "hex-encoded cert image file (or - for stdin hex)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	c, code := loadCert(*in, stderr)
	if code != 0 {
		return code
	}
	id, err := c.CalcId1()
	if err != nil {
		fmt.Fprintf(stderr, "calcId1 failed: %v\n", err)
		return 1
	}
	mt := c.ModelType()
	fmt.Fprintf(stdout, "kind: %s\n", c.Kind())
	fmt.Fprintf(stdout, "model_type: %s\n", hex.EncodeToString(mt[:]))
	fmt.Fprintf(stdout, "id1: %s\n", hex.EncodeToString(id[:]))
	return 0
}

func runValidate(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	in := fs.String("in", "", "hex-encoded cert image file (or - for stdin hex)")
	deep := fs.Int("deep", 0, "validation depth; >=2 skips signature verification")
	now := fs.Uint64("now", 0, "current time in ms since epoch (0 = skip the window check)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	c, code := loadCert(*in, stderr)
	if code != 0 {
		return code
	}
	var nowPtr *uint64
	if *now != 0 {
		nowPtr = now
	}
	if err := c.Validate(*deep, nowPtr); err != nil {
		fmt.Fprintf(stdout, "validate: failed: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, "validate: ok")
	return 0
}

func runValidateTarget(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("validate-target", flag.ContinueOnError)
	fs.SetOutput(stderr)
	in := fs.String("in", "", "hex-encoded cert image file (or - for stdin hex)")
	creation := fs.Uint64("target-creation-time", 0, "embedder creationTime")
	expire := fs.Uint64("target-expire-time", 0, "embedder expireTime")
	modelType := fs.String("target-model-type", "", "embedder model type, 6 hex-encoded bytes (default: the cert's own)")
	var signerFlags multiStringFlag
	fs.Var(&signerFlags, "target-signer", "hex-encoded embedder signing public key (repeatable)")
	chainLength := fs.Uint("target-max-chain-length", 0, "embedder maxChainLength")
	constraintsFlag := fs.String("target-constraints", "", "hex-encoded 32-byte embedder constraints")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	c, code := loadCert(*in, stderr)
	if code != 0 {
		return code
	}

	tv := cert.TargetValues{
		CreationTime:   *creation,
		ExpireTime:     *expire,
		ModelType:      c.ModelType(),
		MaxChainLength: uint8(*chainLength),
	}
	if *modelType != "" {
		raw, err := hex.DecodeString(*modelType)
		if err != nil || len(raw) != 6 {
			fmt.Fprintln(stderr, "-target-model-type must be 6 hex-encoded bytes")
			return 2
		}
		copy(tv.ModelType[:], raw)
	}
	signers, code := decodeKeyList(signerFlags, "-target-signer", stderr)
	if code != 0 {
		return code
	}
	tv.SigningPublicKeys = signers
	if *constraintsFlag != "" {
		raw, err := hex.DecodeString(*constraintsFlag)
		if err != nil || len(raw) != 32 {
			fmt.Fprintln(stderr, "-target-constraints must be 32 hex-encoded bytes")
			return 2
		}
		var constraints [32]byte
		copy(constraints[:], raw)
		tv.Constraints = &constraints
	}

	if err := c.ValidateAgainstTarget(tv); err != nil {
		fmt.Fprintf(stdout, "validate-target: failed: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, "validate-target: ok")
	return 0
}

func runVerify(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	fs.SetOutput(stderr)
	in := fs.String("in", "", "hex-encoded cert image file (or - for stdin hex)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	c, code := loadCert(*in, stderr)
	if code != 0 {
		return code
	}
	ok, err := c.Verify()
	if err != nil {
		fmt.Fprintf(stderr, "verify errored: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "verify: %v\n", ok)
	if !ok {
		return 1
	}
	return 0
}

func loadCert(path string, stderr io.Writer) (cert.Cert, int) {
	img, code := readImage(path, stderr)
	if code != 0 {
		return nil, code
	}
	c, err := cert.DecodeCert(img)
	if err != nil {
		fmt.Fprintf(stderr, "decode failed: %v\n", err)
		return nil, 1
	}
	return c, 0
}

func readImage(path string, stderr io.Writer) ([]byte, int) {
	var raw []byte
	var err error
	if path == "" || path == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		fmt.Fprintf(stderr, "read failed: %v\n", err)
		return nil, 1
	}
	img, err := hex.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		fmt.Fprintf(stderr, "invalid hex input: %v\n", err)
		return nil, 2
	}
	return img, 0
}

func decodeKeyList(values []string, flagName string, stderr io.Writer) ([]cert.PublicKey, int) {
	keys := make([]cert.PublicKey, 0, len(values))
	for _, v := range values {
		b, err := hex.DecodeString(v)
		if err != nil {
			fmt.Fprintf(stderr, "invalid %s %q: %v\n", flagName, v, err)
			return nil, 2
		}
		keys = append(keys, cert.PublicKey(b))
	}
	return keys, 0
}

type multiStringFlag []string

func (m *multiStringFlag) String() string {
	if m == nil {
		return ""
	}
	return strings.Join(*m, ",")
}

func (m *multiStringFlag) Set(value string) error {
	*m = append(*m, value)
	return nil
}
