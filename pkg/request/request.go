// Package request implements identity-authed request payloads: the
// command-tagged, timestamped, signed envelopes that gate every
// privileged operation (identity rotation, share addition/removal,
// threshold modification, share recovery) before a multi-party protocol
// is allowed to start.
package request

import (
	"encoding/binary"
	"time"

	"github.com/zeebo/blake3"

	"github.com/luxfi/wamu/pkg/challenge"
	"github.com/luxfi/wamu/pkg/crypto"
	"github.com/luxfi/wamu/pkg/identity"
	"github.com/luxfi/wamu/pkg/werror"
)

// Command tags. Each is a short ASCII label that domain-separates the
// signed message so a signature produced for one command can never be
// replayed as another.
const (
	TagIdentityRotation      = "identity-rotation"
	TagShareAddition         = "share-addition"
	TagShareRemoval          = "share-removal"
	TagThresholdModification = "threshold-modification"
	TagShareRecovery         = "share-recovery"
)

// FreshnessWindow bounds how old (or how far in the future) an
// IdentityAuthedRequestPayload's timestamp may be at verification time.
// The source left this as an implementation choice; 60 seconds tracks
// typical NTP-bounded clock skew on honest participants without giving
// an attacker a long replay window.
const FreshnessWindow = 60 * time.Second

// domainSeparator is prepended to every message this package signs so
// that a signature produced here can't double as a valid signature for
// an unrelated protocol that happens to sign the same bytes.
const domainSeparator = "wamu-identity-authed-request:"

// prefix domain-separates msg before it is signed or verified.
func prefix(msg []byte) []byte {
	out := make([]byte, 0, len(domainSeparator)+len(msg))
	out = append(out, domainSeparator...)
	out = append(out, msg...)
	return out
}

func signedMessage(tag string, timestamp uint64) []byte {
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], timestamp)
	msg := make([]byte, 0, len(tag)+8)
	msg = append(msg, tag...)
	msg = append(msg, ts[:]...)
	return prefix(msg)
}

// IdentityAuthedRequestPayload is the signed envelope a party broadcasts
// to initiate a gated command.
type IdentityAuthedRequestPayload struct {
	CommandTag    string
	VerifyingKey  crypto.VerifyingKey
	TimestampSecs uint64
	Signature     crypto.Signature
}

// nowUnixSecs is the request package's only source of wall-clock time,
// isolated so tests can observe and control it without faking the
// platform clock.
var nowUnixSecs = func() uint64 {
	return uint64(time.Now().Unix())
}

// Initiate builds a fresh request payload for tag, signed by idp.
func Initiate(tag string, idp identity.Provider) IdentityAuthedRequestPayload {
	timestamp := nowUnixSecs()
	sig := idp.Sign(signedMessage(tag, timestamp))
	return IdentityAuthedRequestPayload{
		CommandTag:    tag,
		VerifyingKey:  idp.VerifyingKey(),
		TimestampSecs: timestamp,
		Signature:     sig,
	}
}

// Verify checks payload against tag and verifiedParties: the command tag
// must match, the verifying key must be one of verifiedParties, the
// timestamp must fall within FreshnessWindow of the current time, and
// the signature must verify.
func Verify(tag string, payload IdentityAuthedRequestPayload, verifiedParties []crypto.VerifyingKey) error {
	if payload.CommandTag != tag {
		return werror.New(werror.TagMismatch)
	}

	authorized := false
	for _, vk := range verifiedParties {
		if vk.Equal(payload.VerifyingKey) {
			authorized = true
			break
		}
	}
	if !authorized {
		return werror.New(werror.UnauthorizedParty)
	}

	now := nowUnixSecs()
	var skew uint64
	if now > payload.TimestampSecs {
		skew = now - payload.TimestampSecs
	} else {
		skew = payload.TimestampSecs - now
	}
	if skew > uint64(FreshnessWindow.Seconds()) {
		return werror.New(werror.StaleRequest)
	}

	msg := signedMessage(tag, payload.TimestampSecs)
	if err := crypto.VerifySignature(payload.VerifyingKey, msg, payload.Signature); err != nil {
		return werror.New(werror.InvalidRequestSignature)
	}
	return nil
}

// VerifyAndInitiateChallenge verifies payload against tag and
// verifiedParties, and on success samples this verifier's identity
// challenge fragment. This is the verifier-side entry point shared by
// identity rotation, quorum-approved commands and share recovery: one
// call corresponds to one verifier's participation.
func VerifyAndInitiateChallenge(tag string, payload IdentityAuthedRequestPayload, verifiedParties []crypto.VerifyingKey) (challenge.Fragment, error) {
	if err := Verify(tag, payload, verifiedParties); err != nil {
		return challenge.Fragment{}, err
	}
	return challenge.Initiate(), nil
}

// Fingerprint returns the BLAKE3 fingerprint of an authed request,
// suitable for CommandApprovalPayload.ApprovedRequestFingerprint.
func Fingerprint(payload IdentityAuthedRequestPayload) [32]byte {
	h := blake3.New()
	h.Write([]byte(payload.CommandTag))
	h.Write(payload.VerifyingKey.Key)
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], payload.TimestampSecs)
	h.Write(ts[:])
	h.Write(payload.Signature.Sig)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// approvalDomainSeparator marks fingerprint bytes as being signed in
// their capacity as a quorum approval, not as a raw request fingerprint.
const approvalDomainSeparator = "approval"

// CommandApprovalPayload is one quorum member's signature attesting
// that it has validated a pending request, identified by its
// fingerprint.
type CommandApprovalPayload struct {
	ApprovingVerifyingKey      crypto.VerifyingKey
	ApprovedRequestFingerprint [32]byte
	Signature                  crypto.Signature
}

// Approve builds a CommandApprovalPayload for the request identified by
// fingerprint, signed by idp.
func Approve(fingerprint [32]byte, idp identity.Provider) CommandApprovalPayload {
	msg := append(fingerprint[:], approvalDomainSeparator...)
	return CommandApprovalPayload{
		ApprovingVerifyingKey:      idp.VerifyingKey(),
		ApprovedRequestFingerprint: fingerprint,
		Signature:                  idp.Sign(msg),
	}
}

// VerifyApproval checks a single approval against the expected request
// fingerprint.
func VerifyApproval(approval CommandApprovalPayload, fingerprint [32]byte) error {
	if approval.ApprovedRequestFingerprint != fingerprint {
		return werror.New(werror.InvalidApprovalSignature)
	}
	msg := append(fingerprint[:], approvalDomainSeparator...)
	if err := crypto.VerifySignature(approval.ApprovingVerifyingKey, msg, approval.Signature); err != nil {
		return werror.New(werror.InvalidApprovalSignature)
	}
	return nil
}

// QuorumApprovedChallengeResponsePayload is the challenge response for a
// quorum-gated command: the initiator's signature over the
// challenge-fragment aggregate, plus the set of approvals collected from
// other quorum members.
type QuorumApprovedChallengeResponsePayload struct {
	VerifyingKey crypto.VerifyingKey
	Approvals    []CommandApprovalPayload
	Signature    crypto.Signature
}

// VerifyApprovals enforces the quorum gate over a set of approvals: every
// approving key must be in verifiedParties, approvals must be unique by
// verifying key, there must be at least quorumSize of them, and each
// approval signature must verify against fingerprint.
func VerifyApprovals(approvals []CommandApprovalPayload, fingerprint [32]byte, verifiedParties []crypto.VerifyingKey, quorumSize int) error {
	seen := make(map[string]struct{}, len(approvals))
	unique := 0
	for _, approval := range approvals {
		authorized := false
		for _, vk := range verifiedParties {
			if vk.Equal(approval.ApprovingVerifyingKey) {
				authorized = true
				break
			}
		}
		if !authorized {
			return werror.New(werror.UnauthorizedParty)
		}

		key := string(approval.ApprovingVerifyingKey.Key)
		if _, dup := seen[key]; dup {
			return werror.New(werror.DuplicateApproval)
		}
		seen[key] = struct{}{}
		unique++

		if err := VerifyApproval(approval, fingerprint); err != nil {
			return err
		}
	}

	if unique < quorumSize {
		return werror.New(werror.InsufficientApprovals)
	}
	return nil
}
