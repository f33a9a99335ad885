package application_test

import (
	"context"
	"crypto/ecdsa"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/gateway-os/gatewayd/internal/core/application"
	"github.com/gateway-os/gatewayd/internal/core/domain"
	chainclockmanual "github.com/gateway-os/gatewayd/internal/infrastructure/chain-clock/manual"
	"github.com/gateway-os/gatewayd/internal/infrastructure/db"
	inmemorylivestore "github.com/gateway-os/gatewayd/internal/infrastructure/live-store/inmemory"
	blockscheduler "github.com/gateway-os/gatewayd/internal/infrastructure/scheduler/block"
	"github.com/gateway-os/gatewayd/pkg/errors"
	"github.com/gateway-os/gatewayd/pkg/gateway-lib/eip712"
	"github.com/gateway-os/gatewayd/pkg/gateway-lib/payload"
	"github.com/gateway-os/gatewayd/pkg/gateway-lib/transferspec"
)

const (
	testChainDomain     = uint32(5)
	foreignDomain       = uint32(9)
	testWithdrawalDelay = uint64(10)
	startHeight         = uint64(100)
)

var testWalletContract = bytes32(0xcc)

type fixture struct {
	svc        application.Service
	clock      *chainclockmanual.Service
	burnKey    *ecdsa.PrivateKey
	burnSigner common.Address
	token      common.Address
	domain     eip712.Domain
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo, err := db.NewService(db.ServiceConfig{
		DataStoreType:   "badger",
		DataStoreConfig: []interface{}{"", nil},
	})
	require.NoError(t, err)

	clock := chainclockmanual.NewChainClock()
	clock.SetHeight(startHeight)

	burnKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	burnSigner := crypto.PubkeyToAddress(burnKey.PublicKey)

	svc, err := application.NewService(
		repo,
		inmemorylivestore.NewLiveStore(),
		clock,
		blockscheduler.NewScheduler(clock),
		nil,
		testChainDomain, testWalletContract, testWithdrawalDelay,
		burnSigner, burnSigner,
	)
	require.NoError(t, err)

	token := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	require.NoError(t, svc.SupportToken(context.Background(), token))

	return &fixture{
		svc:        svc,
		clock:      clock,
		burnKey:    burnKey,
		burnSigner: burnSigner,
		token:      token,
		domain:     eip712.WalletDomain(uint64(testChainDomain), testWalletContract),
	}
}

func bytes32(b byte) [32]byte {
	var out [32]byte
	for i := range out {
		out[i] = b
	}
	return out
}

type intentSpec struct {
	sourceDomain uint32
	token        common.Address
	depositor    common.Address
	signer       common.Address
	value        uint64
	maxFee       uint64
	maxHeight    uint64
	salt         byte
	contract     [32]byte
}

func (f *fixture) defaultIntent(depositor common.Address, salt byte) intentSpec {
	return intentSpec{
		sourceDomain: testChainDomain,
		token:        f.token,
		depositor:    depositor,
		signer:       depositor,
		value:        100,
		maxFee:       10,
		maxHeight:    startHeight + 50,
		salt:         salt,
		contract:     testWalletContract,
	}
}

func encodeIntents(t *testing.T, specs ...intentSpec) []byte {
	t.Helper()

	fields := make([]payload.BurnIntentFields, 0, len(specs))
	for _, s := range specs {
		fields = append(fields, payload.BurnIntentFields{
			MaxBlockHeight: uint256.NewInt(s.maxHeight),
			MaxFee:         uint256.NewInt(s.maxFee),
			Spec: transferspec.Fields{
				SourceDomain:         s.sourceDomain,
				DestinationDomain:    s.sourceDomain + 1,
				SourceContract:       s.contract,
				DestinationContract:  bytes32(0xdd),
				SourceToken:          eip712.AddressToBytes32(s.token),
				DestinationToken:     bytes32(0xee),
				SourceDepositor:      eip712.AddressToBytes32(s.depositor),
				DestinationRecipient: bytes32(0xff),
				SourceSigner:         eip712.AddressToBytes32(s.signer),
				Value:                uint256.NewInt(s.value),
				Salt:                 bytes32(s.salt),
			},
		})
	}

	buf, err := payload.EncodeBurnIntentSet(fields)
	require.NoError(t, err)
	return buf
}

// signPayload signs the encoded burn intent set with the source signer's key.
func (f *fixture) signPayload(t *testing.T, buf []byte, key *ecdsa.PrivateKey) []byte {
	t.Helper()

	set, err := payload.CastBurnIntentSet(buf)
	require.NoError(t, err)
	structHash, err := set.TypedDataHash()
	require.NoError(t, err)

	sig, err := eip712.Sign(f.domain.Digest(structHash), key)
	require.NoError(t, err)
	return sig
}

func (f *fixture) signBatch(t *testing.T, batch *application.BurnBatch) {
	t.Helper()

	sig, err := eip712.Sign(batch.Digest(), f.burnKey)
	require.NoError(t, err)
	batch.Signature = sig
}

func fees(values ...uint64) []*uint256.Int {
	out := make([]*uint256.Int, 0, len(values))
	for _, v := range values {
		out = append(out, uint256.NewInt(v))
	}
	return out
}

func requireCode[MT any](t *testing.T, err error, code errors.Code[MT]) {
	t.Helper()

	require.Error(t, err)
	var typed errors.Error
	require.ErrorAs(t, err, &typed)
	require.Equal(t, code.Name, typed.CodeName())
}

func TestDepositAndBalance(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	depositor := common.HexToAddress("0x0000000000000000000000000000000000000001")

	require.NoError(t, f.svc.Deposit(ctx, f.token, depositor, uint256.NewInt(1000)))

	info, err := f.svc.GetBalance(ctx, f.token, depositor)
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(1000), info.Available)
	require.Equal(t, uint256.NewInt(1000), info.Total)
	require.True(t, info.Withdrawing.IsZero())
	require.Equal(t, startHeight, info.CurrentBlock)
}

func TestWithdrawalLifecycle(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	depositor := common.HexToAddress("0x0000000000000000000000000000000000000002")

	require.NoError(t, f.svc.Deposit(ctx, f.token, depositor, uint256.NewInt(1000)))
	require.NoError(t, f.svc.InitiateWithdrawal(ctx, f.token, depositor, uint256.NewInt(400)))

	info, err := f.svc.GetBalance(ctx, f.token, depositor)
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(600), info.Available)
	require.Equal(t, uint256.NewInt(400), info.Withdrawing)
	require.Equal(t, startHeight+testWithdrawalDelay, info.WithdrawableAtBlock)
	require.True(t, info.Withdrawable.IsZero())

	t.Run("before delay elapsed", func(t *testing.T) {
		_, err := f.svc.Withdraw(ctx, f.token, depositor)
		requireCode(t, err, errors.WITHDRAWAL_DELAY_NOT_ELAPSED)
	})

	t.Run("after delay elapsed", func(t *testing.T) {
		f.clock.SetHeight(startHeight + testWithdrawalDelay)

		withdrawn, err := f.svc.Withdraw(ctx, f.token, depositor)
		require.NoError(t, err)
		require.Equal(t, uint256.NewInt(400), withdrawn)

		info, err := f.svc.GetBalance(ctx, f.token, depositor)
		require.NoError(t, err)
		require.Equal(t, uint256.NewInt(600), info.Available)
		require.True(t, info.Withdrawing.IsZero())
	})

	t.Run("nothing left to withdraw", func(t *testing.T) {
		_, err := f.svc.Withdraw(ctx, f.token, depositor)
		requireCode(t, err, errors.NO_WITHDRAWING_BALANCE)
	})

	t.Run("more than available", func(t *testing.T) {
		err := f.svc.InitiateWithdrawal(ctx, f.token, depositor, uint256.NewInt(601))
		requireCode(t, err, errors.INSUFFICIENT_AVAILABLE_BALANCE)
	})
}

func TestGatewayBurn(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	depositorKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	depositor := crypto.PubkeyToAddress(depositorKey.PublicKey)

	require.NoError(t, f.svc.Deposit(ctx, f.token, depositor, uint256.NewInt(1000)))

	buf := encodeIntents(t,
		f.defaultIntent(depositor, 0x01),
		f.defaultIntent(depositor, 0x02),
	)
	batch := application.BurnBatch{
		Payloads: []application.SignedBurnPayload{{
			Payload:   buf,
			Signature: f.signPayload(t, buf, depositorKey),
			Fees:      fees(5, 5),
		}},
	}
	f.signBatch(t, &batch)

	report, err := f.svc.GatewayBurn(ctx, batch)
	require.NoError(t, err)
	require.Equal(t, 2, report.NumIntents)
	require.Zero(t, report.NumSkipped)
	require.Equal(t, f.token, report.Token)
	require.Equal(t, uint256.NewInt(200), report.TotalValue)
	require.Equal(t, uint256.NewInt(10), report.TotalFee)

	info, err := f.svc.GetBalance(ctx, f.token, depositor)
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(790), info.Available)

	burns, err := f.svc.ListBurns(ctx)
	require.NoError(t, err)
	require.Len(t, burns, 2)
	for _, burn := range burns {
		require.Equal(t, f.token, burn.Token)
		require.Equal(t, depositor, burn.Depositor)
		require.Equal(t, uint256.NewInt(100), burn.Value)
		require.Equal(t, uint256.NewInt(5), burn.Fee)
	}

	t.Run("replay is rejected", func(t *testing.T) {
		_, err := f.svc.GatewayBurn(ctx, batch)
		requireCode(t, err, errors.SPEC_HASH_ALREADY_USED)
	})
}

func TestGatewayBurnValidation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	depositorKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	depositor := crypto.PubkeyToAddress(depositorKey.PublicKey)
	require.NoError(t, f.svc.Deposit(ctx, f.token, depositor, uint256.NewInt(10_000)))

	signedBatch := func(t *testing.T, feeValues []uint64, specs ...intentSpec) application.BurnBatch {
		buf := encodeIntents(t, specs...)
		batch := application.BurnBatch{
			Payloads: []application.SignedBurnPayload{{
				Payload:   buf,
				Signature: f.signPayload(t, buf, depositorKey),
				Fees:      fees(feeValues...),
			}},
		}
		f.signBatch(t, &batch)
		return batch
	}

	t.Run("empty batch", func(t *testing.T) {
		_, err := f.svc.GatewayBurn(ctx, application.BurnBatch{})
		requireCode(t, err, errors.NO_RELEVANT_BURN_INTENTS)
	})

	t.Run("wrong burn signer", func(t *testing.T) {
		batch := signedBatch(t, []uint64{5}, f.defaultIntent(depositor, 0x10))

		strangerKey, err := crypto.GenerateKey()
		require.NoError(t, err)
		sig, err := eip712.Sign(batch.Digest(), strangerKey)
		require.NoError(t, err)
		batch.Signature = sig

		_, err = f.svc.GatewayBurn(ctx, batch)
		requireCode(t, err, errors.INVALID_BURN_SIGNER)
	})

	t.Run("fees count mismatch", func(t *testing.T) {
		batch := signedBatch(t, []uint64{5, 5}, f.defaultIntent(depositor, 0x11))
		_, err := f.svc.GatewayBurn(ctx, batch)
		requireCode(t, err, errors.MISMATCHED_BURN)
	})

	t.Run("malformed payload", func(t *testing.T) {
		buf := encodeIntents(t, f.defaultIntent(depositor, 0x12))
		batch := application.BurnBatch{
			Payloads: []application.SignedBurnPayload{{
				Payload:   buf[:len(buf)-3],
				Signature: f.signPayload(t, buf, depositorKey),
				Fees:      fees(5),
			}},
		}
		f.signBatch(t, &batch)

		_, err := f.svc.GatewayBurn(ctx, batch)
		requireCode(t, err, errors.MALFORMED_PAYLOAD)
	})

	t.Run("zero value poisons the batch even on a foreign domain", func(t *testing.T) {
		foreign := f.defaultIntent(depositor, 0x13)
		foreign.sourceDomain = foreignDomain
		foreign.value = 0

		batch := signedBatch(t, []uint64{5, 5}, f.defaultIntent(depositor, 0x14), foreign)
		_, err := f.svc.GatewayBurn(ctx, batch)
		requireCode(t, err, errors.INTENT_VALUE_MUST_BE_POSITIVE)
	})

	t.Run("foreign domain intents are skipped", func(t *testing.T) {
		before, err := f.svc.GetBalance(ctx, f.token, depositor)
		require.NoError(t, err)

		foreign := f.defaultIntent(depositor, 0x15)
		foreign.sourceDomain = foreignDomain

		batch := signedBatch(t, []uint64{5, 5}, f.defaultIntent(depositor, 0x16), foreign)
		report, err := f.svc.GatewayBurn(ctx, batch)
		require.NoError(t, err)
		require.Equal(t, 1, report.NumIntents)
		require.Equal(t, 1, report.NumSkipped)

		// only the domestic intent's value and fee are debited, the skipped
		// intent charges nothing
		require.Equal(t, uint256.NewInt(100), report.TotalValue)
		require.Equal(t, uint256.NewInt(5), report.TotalFee)

		after, err := f.svc.GetBalance(ctx, f.token, depositor)
		require.NoError(t, err)
		debited := new(uint256.Int).Sub(before.Total, after.Total)
		require.Equal(t, uint256.NewInt(105), debited)
	})

	t.Run("all foreign means nothing to do", func(t *testing.T) {
		foreign := f.defaultIntent(depositor, 0x17)
		foreign.sourceDomain = foreignDomain

		batch := signedBatch(t, []uint64{5}, foreign)
		_, err := f.svc.GatewayBurn(ctx, batch)
		requireCode(t, err, errors.NO_RELEVANT_BURN_INTENTS)
	})

	t.Run("unknown wallet contract", func(t *testing.T) {
		intent := f.defaultIntent(depositor, 0x18)
		intent.contract = bytes32(0x99)

		batch := signedBatch(t, []uint64{5}, intent)
		_, err := f.svc.GatewayBurn(ctx, batch)
		requireCode(t, err, errors.INVALID_SOURCE_CONTRACT)
	})

	t.Run("unsupported token", func(t *testing.T) {
		intent := f.defaultIntent(depositor, 0x19)
		intent.token = common.HexToAddress("0x00000000000000000000000000000000000000bb")

		batch := signedBatch(t, []uint64{5}, intent)
		_, err := f.svc.GatewayBurn(ctx, batch)
		requireCode(t, err, errors.UNSUPPORTED_TOKEN)
	})

	t.Run("declared signer does not match signature", func(t *testing.T) {
		intent := f.defaultIntent(depositor, 0x1a)
		intent.signer = common.HexToAddress("0x00000000000000000000000000000000000000cc")

		batch := signedBatch(t, []uint64{5}, intent)
		_, err := f.svc.GatewayBurn(ctx, batch)
		requireCode(t, err, errors.INVALID_INTENT_SIGNER)
	})

	t.Run("expired intent", func(t *testing.T) {
		intent := f.defaultIntent(depositor, 0x1b)
		intent.maxHeight = startHeight - 1

		batch := signedBatch(t, []uint64{5}, intent)
		_, err := f.svc.GatewayBurn(ctx, batch)
		requireCode(t, err, errors.INTENT_EXPIRED)
	})

	t.Run("fee above signed maximum", func(t *testing.T) {
		batch := signedBatch(t, []uint64{11}, f.defaultIntent(depositor, 0x1c))
		_, err := f.svc.GatewayBurn(ctx, batch)
		requireCode(t, err, errors.BURN_FEE_TOO_HIGH)
	})

	t.Run("mixed tokens in one batch", func(t *testing.T) {
		otherToken := common.HexToAddress("0x00000000000000000000000000000000000000dd")
		require.NoError(t, f.svc.SupportToken(ctx, otherToken))

		second := f.defaultIntent(depositor, 0x1d)
		second.token = otherToken

		batch := signedBatch(t, []uint64{5, 5}, f.defaultIntent(depositor, 0x1e), second)
		_, err := f.svc.GatewayBurn(ctx, batch)
		requireCode(t, err, errors.NOT_ALL_SAME_TOKEN)
	})

	t.Run("duplicate spec hash within a batch", func(t *testing.T) {
		intent := f.defaultIntent(depositor, 0x1f)

		batch := signedBatch(t, []uint64{5, 5}, intent, intent)
		_, err := f.svc.GatewayBurn(ctx, batch)
		requireCode(t, err, errors.SPEC_HASH_ALREADY_USED)
	})
}

func TestGatewayBurnDelegate(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	depositor := common.HexToAddress("0x0000000000000000000000000000000000000aaa")
	delegateKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	delegate := crypto.PubkeyToAddress(delegateKey.PublicKey)

	require.NoError(t, f.svc.Deposit(ctx, f.token, depositor, uint256.NewInt(1000)))

	delegatedIntent := func(salt byte) intentSpec {
		intent := f.defaultIntent(depositor, salt)
		intent.signer = delegate
		return intent
	}

	submit := func(t *testing.T, salt byte) error {
		buf := encodeIntents(t, delegatedIntent(salt))
		batch := application.BurnBatch{
			Payloads: []application.SignedBurnPayload{{
				Payload:   buf,
				Signature: f.signPayload(t, buf, delegateKey),
				Fees:      fees(5),
			}},
		}
		f.signBatch(t, &batch)
		_, err := f.svc.GatewayBurn(ctx, batch)
		return err
	}

	t.Run("unauthorized delegate", func(t *testing.T) {
		requireCode(t, submit(t, 0x01), errors.UNAUTHORIZED_DELEGATE)
	})

	t.Run("authorized delegate", func(t *testing.T) {
		require.NoError(t, f.svc.AddDelegate(ctx, f.token, depositor, delegate))
		require.NoError(t, submit(t, 0x02))
	})

	t.Run("revoked delegate can still burn", func(t *testing.T) {
		// intents signed while the delegation was live must remain executable
		require.NoError(t, f.svc.RevokeDelegate(ctx, f.token, depositor, delegate))
		require.NoError(t, submit(t, 0x03))
	})
}

func TestGatewayBurnShortfall(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	depositorKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	depositor := crypto.PubkeyToAddress(depositorKey.PublicKey)

	// deposit covers the value but only half the fee
	require.NoError(t, f.svc.Deposit(ctx, f.token, depositor, uint256.NewInt(105)))

	buf := encodeIntents(t, f.defaultIntent(depositor, 0x01))
	batch := application.BurnBatch{
		Payloads: []application.SignedBurnPayload{{
			Payload:   buf,
			Signature: f.signPayload(t, buf, depositorKey),
			Fees:      fees(10),
		}},
	}
	f.signBatch(t, &batch)

	report, err := f.svc.GatewayBurn(ctx, batch)
	require.NoError(t, err)

	// the burned value is made whole first, the fee absorbs the shortfall
	require.Equal(t, uint256.NewInt(100), report.TotalValue)
	require.Equal(t, uint256.NewInt(5), report.TotalFee)

	info, err := f.svc.GetBalance(ctx, f.token, depositor)
	require.NoError(t, err)
	require.True(t, info.Total.IsZero())

	// the partial debit surfaces as a diagnostic event
	var diag *domain.InsufficientBalance
	for len(f.svc.GetEventsChannel(ctx)) > 0 {
		event := <-f.svc.GetEventsChannel(ctx)
		if e, ok := event.(domain.InsufficientBalance); ok {
			diag = &e
			break
		}
	}
	require.NotNil(t, diag)
	require.Equal(t, f.token, diag.Token)
	require.Equal(t, depositor, diag.Depositor)
	require.Equal(t, uint256.NewInt(110), diag.Requested)
	require.Equal(t, uint256.NewInt(105), diag.Debited)

	// the spec hash was consumed despite the partial debit
	_, err = f.svc.GatewayBurn(ctx, batch)
	requireCode(t, err, errors.SPEC_HASH_ALREADY_USED)
}

func TestAdminOperations(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	t.Run("rotate burn signer", func(t *testing.T) {
		newSigner := common.HexToAddress("0x0000000000000000000000000000000000000123")
		require.NoError(t, f.svc.SetBurnSigner(ctx, newSigner))

		depositorKey, err := crypto.GenerateKey()
		require.NoError(t, err)
		depositor := crypto.PubkeyToAddress(depositorKey.PublicKey)
		require.NoError(t, f.svc.Deposit(ctx, f.token, depositor, uint256.NewInt(1000)))

		buf := encodeIntents(t, f.defaultIntent(depositor, 0x01))
		batch := application.BurnBatch{
			Payloads: []application.SignedBurnPayload{{
				Payload:   buf,
				Signature: f.signPayload(t, buf, depositorKey),
				Fees:      fees(5),
			}},
		}
		// signed by the old, now rotated out, burn signer
		f.signBatch(t, &batch)

		_, err = f.svc.GatewayBurn(ctx, batch)
		requireCode(t, err, errors.INVALID_BURN_SIGNER)
	})

	t.Run("unsupport token", func(t *testing.T) {
		require.NoError(t, f.svc.UnsupportToken(ctx, f.token))

		events := f.svc.GetEventsChannel(ctx)
		require.NotNil(t, events)
	})
}
