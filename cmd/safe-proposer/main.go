package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/joho/godotenv"
	cli "github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/Layr-Labs/safe-proposer-go/pkg/chainManager"
	"github.com/Layr-Labs/safe-proposer-go/pkg/checksum"
	"github.com/Layr-Labs/safe-proposer-go/pkg/config"
	"github.com/Layr-Labs/safe-proposer-go/pkg/create2"
	"github.com/Layr-Labs/safe-proposer-go/pkg/logger"
	"github.com/Layr-Labs/safe-proposer-go/pkg/multisend"
	"github.com/Layr-Labs/safe-proposer-go/pkg/proposer"
	"github.com/Layr-Labs/safe-proposer-go/pkg/safe"
	"github.com/Layr-Labs/safe-proposer-go/pkg/service"
	"github.com/Layr-Labs/safe-proposer-go/pkg/transport"
)

func main() {
	app := &cli.App{
		Name:  "safe-proposer",
		Usage: "Batch transactions into a Safe MultiSend and propose them to the Safe Transaction Service",
		Description: `The safe-proposer CLI packs calls and CREATE2 deployments into a single
MultiSend delegate call, has the Safe compute its transaction hash, signs it with
one co-signer key and proposes it so the remaining owners can confirm it.`,
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"d"},
				Usage:   "Enable debug logging",
				EnvVars: []string{"DEBUG"},
			},
			&cli.StringFlag{
				Name:    "rpc-url",
				Usage:   "RPC endpoint of the chain the Safe lives on",
				EnvVars: []string{"RPC_URL"},
			},
			&cli.Uint64Flag{
				Name:    "chain-id",
				Usage:   "Expected chain id (defaults to the id reported by --rpc-url)",
				EnvVars: []string{"CHAIN_ID"},
			},
			&cli.StringFlag{
				Name:    "safe",
				Usage:   "Safe address; also the CREATE2 deployer",
				EnvVars: []string{"SAFE_ADDRESS"},
			},
			&cli.StringFlag{
				Name:    "multisend",
				Usage:   "MultiSend library address",
				Value:   config.DefaultMultiSendAddress.Hex(),
				EnvVars: []string{"MULTISEND_ADDRESS"},
			},
			&cli.StringFlag{
				Name:    "create-call",
				Usage:   "CreateCall library address",
				Value:   config.DefaultCreateCallAddress.Hex(),
				EnvVars: []string{"CREATE_CALL_ADDRESS"},
			},
			&cli.StringSliceFlag{
				Name:    "tx",
				Usage:   "Sub-transaction, in batch order: 'call:to:value:0xdata' or 'create:0xbytecode:0xargs:salt'",
				EnvVars: []string{"TXS"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "predict",
				Usage: "Print the CREATE2 address of every create entry",
				Description: `Predict the addresses every 'create' --tx entry deploys to when the Safe
executes the batch. Fails if code already exists at any of them.`,
				Action: predictAction,
			},
			{
				Name:   "encode",
				Usage:  "Print the packed MultiSend batch and the outer transaction calldata",
				Action: encodeAction,
			},
			{
				Name:    "propose",
				Aliases: []string{"p"},
				Usage:   "Sign the batch and propose it to the Safe Transaction Service",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:     "signer",
						Usage:    "Co-signer key in format 'keyId=pk:<hex>', 'keyId=kms:<awsKmsKeyId>' or 'keyId=sm:<awsSecretName>'",
						Required: true,
						EnvVars:  []string{"SIGNERS"},
					},
					&cli.StringFlag{
						Name:    "key-id",
						Usage:   "Which --signer key to sign with (defaults to the only one configured)",
						EnvVars: []string{"KEY_ID"},
					},
					&cli.StringFlag{
						Name:    "secret-passphrase",
						Usage:   "Passphrase for keystore JSON stored in Secrets Manager",
						EnvVars: []string{"SECRET_PASSPHRASE"},
					},
					&cli.StringFlag{
						Name:    "aws-region",
						Usage:   "AWS region for KMS and Secrets Manager signers",
						Value:   "us-east-1",
						EnvVars: []string{"AWS_REGION"},
					},
					&cli.StringFlag{
						Name:    "value",
						Usage:   "Native value in wei attached to the outer delegate call",
						Value:   "0",
						EnvVars: []string{"VALUE"},
					},
					&cli.StringFlag{
						Name:    "nonce",
						Usage:   "Safe nonce to propose at (defaults to the Safe's current nonce)",
						EnvVars: []string{"NONCE"},
					},
					&cli.StringFlag{
						Name:    "origin",
						Usage:   "Origin recorded with the proposal (defaults to the signer address)",
						EnvVars: []string{"ORIGIN"},
					},
					&cli.DurationFlag{
						Name:    "timeout",
						Usage:   "HTTP timeout for the proposal request",
						Value:   30 * time.Second,
						EnvVars: []string{"HTTP_TIMEOUT"},
					},
				},
				Action: proposeAction,
			},
		},
		Before: loadEnv,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadEnv(c *cli.Context) error {
	// .env is optional; flags and the process environment still apply without it
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

func setupLogger(c *cli.Context) (*zap.Logger, error) {
	return logger.NewLogger(&logger.LoggerConfig{
		Debug: c.Bool("debug"),
	})
}

// setupChain dials --rpc-url and returns the registered chain.
func setupChain(c *cli.Context, l *zap.Logger) (*chainManager.Chain, error) {
	rpcUrl := c.String("rpc-url")
	if rpcUrl == "" {
		return nil, fmt.Errorf("--rpc-url is required")
	}

	cm := chainManager.NewChainManager()
	if err := cm.AddChain(c.Context, &chainManager.ChainConfig{
		ChainID: c.Uint64("chain-id"),
		RPCUrl:  rpcUrl,
	}); err != nil {
		return nil, fmt.Errorf("failed to add chain: %w", err)
	}
	ids := cm.ChainIDs()
	if len(ids) != 1 {
		return nil, fmt.Errorf("expected exactly one chain, got %d", len(ids))
	}
	chain, err := cm.GetChainForId(ids[0])
	if err != nil {
		return nil, err
	}
	if err := logChainHead(c.Context, chain, l); err != nil {
		return nil, err
	}
	return chain, nil
}

// logChainHead reads the latest block number, confirming the endpoint serves requests.
func logChainHead(ctx context.Context, chain *chainManager.Chain, l *zap.Logger) error {
	head, err := chain.RPCClient.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("failed to read block number for chain %d: %w", chain.ChainID, err)
	}
	l.Sugar().Infow("Connected to chain",
		zap.Uint64("chainId", chain.ChainID),
		zap.Uint64("headBlock", head),
	)
	return nil
}

func setupConfig(c *cli.Context, chainID uint64) (*config.ProposerConfig, error) {
	multiSend, err := checksum.ParseAddress(c.String("multisend"))
	if err != nil {
		return nil, fmt.Errorf("invalid --multisend: %w", err)
	}
	createCall, err := checksum.ParseAddress(c.String("create-call"))
	if err != nil {
		return nil, fmt.Errorf("invalid --create-call: %w", err)
	}

	cfg := config.NewProposerConfig(chainID)
	cfg.MultiSendAddress = multiSend
	cfg.CreateCallAddress = createCall
	cfg.Origin = c.String("origin")
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseSafe(c *cli.Context) (common.Address, error) {
	if c.String("safe") == "" {
		return common.Address{}, fmt.Errorf("--safe is required")
	}
	addr, err := checksum.ParseAddress(c.String("safe"))
	if err != nil {
		return common.Address{}, fmt.Errorf("invalid --safe: %w", err)
	}
	return addr, nil
}

// buildBatch encodes every --tx entry in order. Create entries are deployed by safeAddr.
func buildBatch(ctx context.Context, p *proposer.Proposer, entries []*txEntry, safeAddr common.Address, l *zap.Logger) (multisend.Batch, []common.Address, error) {
	batch := multisend.Batch{}
	var predicted []common.Address
	for i, entry := range entries {
		var subTx multisend.EncodedSubTransaction
		var err error
		switch entry.Kind {
		case txKindCall:
			subTx, err = p.CallTx(entry.To, entry.Value, entry.Data)
		case txKindCreate:
			var addr common.Address
			subTx, addr, err = p.CreateTx(ctx, entry.Bytecode, entry.Args, entry.Salt, safeAddr)
			if err == nil {
				predicted = append(predicted, addr)
			}
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode tx #%d: %w", i, err)
		}
		l.Sugar().Debugw("Encoded sub-transaction",
			zap.Int("index", i),
			zap.String("kind", entry.Kind),
			zap.Int("length", len(subTx)),
		)
		batch = multisend.Append(batch, subTx)
	}
	return batch, predicted, nil
}

func predictAction(c *cli.Context) error {
	l, err := setupLogger(c)
	if err != nil {
		return fmt.Errorf("failed to setup logger: %w", err)
	}
	safeAddr, err := parseSafe(c)
	if err != nil {
		return err
	}
	entries, err := parseTxEntries(c.StringSlice("tx"))
	if err != nil {
		return err
	}
	chain, err := setupChain(c, l)
	if err != nil {
		return fmt.Errorf("failed to setup chain: %w", err)
	}

	createCall, err := checksum.ParseAddress(c.String("create-call"))
	if err != nil {
		return fmt.Errorf("invalid --create-call: %w", err)
	}
	predictor := create2.NewPredictor(createCall, chain.RPCClient, l)

	for i, entry := range entries {
		if entry.Kind != txKindCreate {
			continue
		}
		_, addr, err := predictor.EncodeCreate2(c.Context, entry.Bytecode, entry.Args, entry.Salt, safeAddr)
		if err != nil {
			return fmt.Errorf("failed to predict tx #%d: %w", i, err)
		}
		fmt.Printf("%d\t%s\n", i, checksum.FormatAddress(addr))
	}
	return nil
}

func encodeAction(c *cli.Context) error {
	l, err := setupLogger(c)
	if err != nil {
		return fmt.Errorf("failed to setup logger: %w", err)
	}
	safeAddr, err := parseSafe(c)
	if err != nil {
		return err
	}
	entries, err := parseTxEntries(c.StringSlice("tx"))
	if err != nil {
		return err
	}

	// Calls encode offline; only create entries need the chain for the collision check.
	var code create2.CodeReader = noCode{}
	chainID := c.Uint64("chain-id")
	if c.String("rpc-url") != "" {
		chain, err := setupChain(c, l)
		if err != nil {
			return fmt.Errorf("failed to setup chain: %w", err)
		}
		code = chain.RPCClient
		chainID = chain.ChainID
	} else {
		l.Sugar().Warnw("No --rpc-url given, CREATE2 addresses are not checked for existing code")
	}
	if chainID == 0 {
		chainID = 1 // the chain id does not affect encoding
	}

	cfg, err := setupConfig(c, chainID)
	if err != nil {
		return err
	}
	p, err := proposer.NewProposer(cfg, code, nil, nil, nil, l)
	if err != nil {
		return fmt.Errorf("failed to create proposer: %w", err)
	}

	batch, predicted, err := buildBatch(c.Context, p, entries, safeAddr, l)
	if err != nil {
		return err
	}
	data, err := multisend.EncodeMultiSend(batch)
	if err != nil {
		return err
	}

	for _, addr := range predicted {
		fmt.Printf("deploys:  %s\n", checksum.FormatAddress(addr))
	}
	fmt.Printf("batch:    %s\n", hexutil.Encode(batch))
	fmt.Printf("to:       %s\n", checksum.FormatAddress(cfg.MultiSendAddress))
	fmt.Printf("calldata: %s\n", hexutil.Encode(data))
	return nil
}

func proposeAction(c *cli.Context) error {
	l, err := setupLogger(c)
	if err != nil {
		return fmt.Errorf("failed to setup logger: %w", err)
	}
	safeAddr, err := parseSafe(c)
	if err != nil {
		return err
	}
	entries, err := parseTxEntries(c.StringSlice("tx"))
	if err != nil {
		return err
	}

	value, ok := new(big.Int).SetString(c.String("value"), 0)
	if !ok || value.Sign() < 0 {
		return fmt.Errorf("invalid --value: %s", c.String("value"))
	}

	kr, err := buildKeyring(c.StringSlice("signer"), c.String("aws-region"), c.String("secret-passphrase"), l)
	if err != nil {
		return fmt.Errorf("failed to setup signers: %w", err)
	}
	keyID := c.String("key-id")
	if keyID == "" {
		ids := kr.KeyIDs()
		if len(ids) != 1 {
			return fmt.Errorf("--key-id is required when %d signers are configured", len(ids))
		}
		keyID = ids[0]
	}

	chain, err := setupChain(c, l)
	if err != nil {
		return fmt.Errorf("failed to setup chain: %w", err)
	}
	// Fail before touching the Safe if the service has no endpoint for this chain.
	if err := checkServiceSupport(chain.ChainID); err != nil {
		return err
	}

	cfg, err := setupConfig(c, chain.ChainID)
	if err != nil {
		return err
	}
	caller := safe.NewCaller(chain.RPCClient, l)
	poster := transport.NewRestyPoster(&transport.TransportConfig{
		Timeout: c.Duration("timeout"),
		Debug:   c.Bool("debug"),
	}, l)

	p, err := proposer.NewProposer(cfg, chain.RPCClient, caller, kr, poster, l)
	if err != nil {
		return fmt.Errorf("failed to create proposer: %w", err)
	}

	batch, _, err := buildBatch(c.Context, p, entries, safeAddr, l)
	if err != nil {
		return err
	}

	var nonce *big.Int
	if s := c.String("nonce"); s != "" {
		n, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return fmt.Errorf("invalid --nonce: %s", s)
		}
		nonce = n
	} else {
		nonce, err = caller.Nonce(c.Context, safeAddr)
		if err != nil {
			return fmt.Errorf("failed to read Safe nonce: %w", err)
		}
	}

	l.Sugar().Infow("Proposing batch",
		zap.Uint64("chainId", chain.ChainID),
		zap.String("safe", checksum.FormatAddress(safeAddr)),
		zap.String("nonce", nonce.String()),
		zap.Int("subTransactions", len(entries)),
	)

	result, err := p.SendTxsWithValue(c.Context, batch, value, nonce, keyID, safeAddr)
	if err != nil {
		return fmt.Errorf("failed to propose batch: %w", err)
	}

	l.Sugar().Infow("Proposal sent",
		zap.Int("status", result.StatusCode),
		zap.String("safeTxHash", result.SafeTxHash.Hex()),
	)
	fmt.Printf("status:     %d\n", result.StatusCode)
	fmt.Printf("safeTxHash: %s\n", result.SafeTxHash.Hex())
	fmt.Printf("request:    %s\n", result.RequestBody)
	fmt.Printf("response:   %s\n", result.ResponseBody)

	if result.StatusCode < 200 || result.StatusCode >= 300 {
		return fmt.Errorf("transaction service returned status %d", result.StatusCode)
	}
	return nil
}

func checkServiceSupport(chainID uint64) error {
	if _, err := service.BaseURL(chainID); err != nil {
		return fmt.Errorf("%w (supported chain ids: %v)", err, service.SupportedChainIDs())
	}
	return nil
}

// noCode reports no code anywhere; used when encoding without an RPC endpoint.
type noCode struct{}

func (noCode) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return nil, nil
}
