package wire

import (
	"errors"
	"fmt"

	namedmsgv1alpha1 "github.com/raskyld/namedmsg/gen/namedmsg/v1alpha1"
	"google.golang.org/protobuf/proto"
)

var (
	ErrMalformedClaim = errors.New("wire: malformed name claim")
)

// ValidateClaim checks the fields every gossiped claim must carry.
func ValidateClaim(claim *namedmsgv1alpha1.NameClaim) error {
	if claim.GetEndpoint() == "" || claim.GetNode() == "" {
		return fmt.Errorf("%w: endpoint and node are required", ErrMalformedClaim)
	}
	switch claim.GetMode() {
	case namedmsgv1alpha1.NameClaimMode_NAME_CLAIM_MODE_CLAIM,
		namedmsgv1alpha1.NameClaimMode_NAME_CLAIM_MODE_UNCLAIM:
		return nil
	default:
		return fmt.Errorf("%w: mode %s", ErrMalformedClaim, claim.GetMode())
	}
}

func MarshalClaim(claim *namedmsgv1alpha1.NameClaim) ([]byte, error) {
	return proto.Marshal(claim)
}

func UnmarshalClaim(b []byte) (*namedmsgv1alpha1.NameClaim, error) {
	claim := &namedmsgv1alpha1.NameClaim{}
	if err := proto.Unmarshal(b, claim); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedClaim, err)
	}
	if err := ValidateClaim(claim); err != nil {
		return nil, err
	}
	return claim, nil
}

// MarshalClaims packs claims for a full state exchange.
func MarshalClaims(claims []*namedmsgv1alpha1.NameClaim) ([]byte, error) {
	return proto.Marshal(&namedmsgv1alpha1.NameClaims{Claims: claims})
}

// UnmarshalClaims fails if any of the claims is invalid.
func UnmarshalClaims(b []byte) ([]*namedmsgv1alpha1.NameClaim, error) {
	var state namedmsgv1alpha1.NameClaims
	if err := proto.Unmarshal(b, &state); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedClaim, err)
	}
	for _, claim := range state.GetClaims() {
		if err := ValidateClaim(claim); err != nil {
			return nil, err
		}
	}
	return state.GetClaims(), nil
}
