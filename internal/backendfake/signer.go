package backendfake

import (
	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-viaticos-session/token"
	"github.com/pkg/errors"
)

// HMACSigner signs and verifies the HS256 tokens the fake backend issues.
type HMACSigner struct {
	secret []byte
}

// NewHMACSigner creates a new HMAC signer with the given secret
func NewHMACSigner(secret []byte) *HMACSigner {
	return &HMACSigner{secret: secret}
}

func (h *HMACSigner) Sign(claims jwtlib.MapClaims) (string, error) {
	signedToken, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(h.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token with HMAC")
	}
	return signedToken, nil
}

// Verify checks the signature and expiry of raw and returns its claims.
func (h *HMACSigner) Verify(raw string) (*token.Claims, error) {
	claims := &token.Claims{}
	_, err := jwtlib.ParseWithClaims(raw, claims, h.verificationKey,
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithTimeFunc(NowTimeFunc),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to verify token")
	}
	return claims, nil
}

func (h *HMACSigner) verificationKey(t *jwtlib.Token) (any, error) {
	if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
		return nil, errors.Errorf("unexpected signing method: %v", t.Header["alg"])
	}
	return h.secret, nil
}
