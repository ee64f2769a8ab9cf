package txSigner

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
	"github.com/aws/aws-sdk-go/service/secretsmanager/secretsmanageriface"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// AWSSMSignerConfig holds the configuration for the AWS Secrets Manager signer.
type AWSSMSignerConfig struct {
	// Region specifies the AWS region where the secret is stored
	Region string
	// SecretName is the name of the secret holding the co-signer key
	SecretName string
	// Passphrase decrypts the secret when it is an encrypted keystore JSON
	Passphrase string
}

// AWSSMSigner implements ISafeTxSigner with a secp256k1 key stored in AWS Secrets Manager.
// The secret is either a hex private key or an encrypted keystore JSON. The key is
// fetched for every signature and never kept in memory.
type AWSSMSigner struct {
	client  secretsmanageriface.SecretsManagerAPI
	config  *AWSSMSignerConfig
	address common.Address
	logger  *zap.Logger
}

// NewAWSSMSigner creates an AWSSMSigner, loading the secret once to derive its address.
//
// Parameters:
//   - cfg: region, secret name and optional keystore passphrase
//   - logger: A zap logger for logging operations and errors
//
// Returns:
//   - *AWSSMSigner: A new AWS Secrets Manager signer instance
//   - error: An error if the session cannot be created or the secret cannot be read
func NewAWSSMSigner(cfg *AWSSMSignerConfig, logger *zap.Logger) (*AWSSMSigner, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(cfg.Region),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	return NewAWSSMSignerWithClient(secretsmanager.New(sess), cfg, logger)
}

// NewAWSSMSignerWithClient creates an AWSSMSigner over an existing Secrets Manager client.
func NewAWSSMSignerWithClient(client secretsmanageriface.SecretsManagerAPI, cfg *AWSSMSignerConfig, logger *zap.Logger) (*AWSSMSigner, error) {
	s := &AWSSMSigner{
		client: client,
		config: cfg,
		logger: logger,
	}
	key, err := s.getSecret(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to get secret: %w", err)
	}
	s.address = crypto.PubkeyToAddress(key.PublicKey)
	return s, nil
}

// getSecret retrieves and parses the private key stored under the configured secret.
func (s *AWSSMSigner) getSecret(ctx context.Context) (*ecdsa.PrivateKey, error) {
	result, err := s.client.GetSecretValueWithContext(ctx, &secretsmanager.GetSecretValueInput{
		SecretId:     aws.String(s.config.SecretName),
		VersionStage: aws.String("AWSCURRENT"),
	})
	if err != nil {
		return nil, err
	}
	if result.SecretString == nil {
		return nil, fmt.Errorf("secret string is nil")
	}

	secret := strings.TrimSpace(*result.SecretString)
	if strings.HasPrefix(secret, "{") {
		key, err := keystore.DecryptKey([]byte(secret), s.config.Passphrase)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt keystore JSON: %w", err)
		}
		return key.PrivateKey, nil
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(secret, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return key, nil
}

// SignHash fetches the key and signs hash with it.
func (s *AWSSMSigner) SignHash(ctx context.Context, hash common.Hash) (*Signature, error) {
	key, err := s.getSecret(ctx)
	if err != nil {
		s.logger.Sugar().Errorw("Failed to load signing key",
			zap.String("secretName", s.config.SecretName),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to get secret: %w", err)
	}
	return NewPrivateKeySignerFromKey(key).SignHash(ctx, hash)
}

// GetAddress returns the address derived when the signer was created.
func (s *AWSSMSigner) GetAddress() (common.Address, error) {
	return s.address, nil
}
