package services

import (
	"os"

	"github.com/yungbote/repodoc-backend/internal/pkg/cryptoutil"
	"github.com/yungbote/repodoc-backend/internal/pkg/faults"
	"github.com/yungbote/repodoc-backend/internal/pkg/logger"
)

// TokenService seals and unseals stored GitHub tokens. Plaintext exists
// only in memory on either side of a call; nothing here logs it.
type TokenService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(sealed string) (string, error)
}

type tokenService struct {
	enc *cryptoutil.Encryptor
	log *logger.Logger
}

// NewTokenService reads TOKEN_ENCRYPTION_KEY (32 raw bytes or base64 of
// 32 bytes) and builds the sealer.
func NewTokenService(log *logger.Logger) (TokenService, error) {
	enc, err := cryptoutil.New(os.Getenv("TOKEN_ENCRYPTION_KEY"))
	if err != nil {
		return nil, err
	}
	return &tokenService{enc: enc, log: log.With("service", "TokenService")}, nil
}

func (s *tokenService) Encrypt(plaintext string) (string, error) {
	return s.enc.Encrypt(plaintext)
}

func (s *tokenService) Decrypt(sealed string) (string, error) {
	plain, err := s.enc.Decrypt(sealed)
	if err != nil {
		return "", &faults.DecryptionError{Err: err}
	}
	return plain, nil
}
