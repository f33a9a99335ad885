package application

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	log "github.com/sirupsen/logrus"

	"github.com/gateway-os/gatewayd/internal/core/domain"
	"github.com/gateway-os/gatewayd/internal/core/ports"
	"github.com/gateway-os/gatewayd/pkg/errors"
	"github.com/gateway-os/gatewayd/pkg/gateway-lib/eip712"
	"github.com/gateway-os/gatewayd/pkg/gateway-lib/payload"
	"github.com/gateway-os/gatewayd/pkg/gateway-lib/transferspec"
)

const chainTipPollInterval = 10 * time.Second

type service struct {
	repoManager ports.RepoManager
	liveStore   ports.LiveStore
	chainClock  ports.ChainClock
	sweeper     ports.SchedulerService
	tokens      ports.TokenService

	chainDomain     uint32
	walletContract  [32]byte
	signingDomain   eip712.Domain
	withdrawalDelay uint64

	eventsCh chan domain.Event

	// guards ledger mutations and the settings cache
	mu           sync.Mutex
	burnSigner   common.Address
	feeRecipient common.Address

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewService(
	repoManager ports.RepoManager,
	liveStore ports.LiveStore,
	chainClock ports.ChainClock,
	scheduler ports.SchedulerService,
	tokens ports.TokenService,
	chainDomain uint32,
	walletContract [32]byte,
	withdrawalDelay uint64,
	burnSigner, feeRecipient common.Address,
) (Service, error) {
	if tokens == nil {
		tokens = tokenServiceUnimplemented{}
	}

	svc := &service{
		repoManager:     repoManager,
		liveStore:       liveStore,
		chainClock:      chainClock,
		sweeper:         scheduler,
		tokens:          tokens,
		chainDomain:     chainDomain,
		walletContract:  walletContract,
		signingDomain:   eip712.WalletDomain(uint64(chainDomain), walletContract),
		withdrawalDelay: withdrawalDelay,
		eventsCh:        make(chan domain.Event, 128),
		burnSigner:      burnSigner,
		feeRecipient:    feeRecipient,
		stopCh:          make(chan struct{}),
	}

	ctx := context.Background()
	settings, err := repoManager.Settings().Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %s", err)
	}
	if settings != nil {
		svc.burnSigner = settings.BurnSigner
		svc.feeRecipient = settings.FeeRecipient
	} else {
		if err := repoManager.Settings().Upsert(ctx, domain.Settings{
			BurnSigner:   burnSigner,
			FeeRecipient: feeRecipient,
		}); err != nil {
			return nil, fmt.Errorf("failed to init settings: %s", err)
		}
	}

	return svc, nil
}

func (s *service) Start() error {
	log.Debug("starting settlement service")
	s.sweeper.Start()

	s.wg.Add(1)
	go s.watchChainTip()
	return nil
}

func (s *service) Stop() {
	close(s.stopCh)
	s.wg.Wait()
	s.sweeper.Stop()
	s.repoManager.Close()
	log.Debug("closed connection to repo manager")
	close(s.eventsCh)
}

func (s *service) GetEventsChannel(_ context.Context) <-chan domain.Event {
	return s.eventsCh
}

func (s *service) Deposit(
	ctx context.Context, token, depositor common.Address, value *uint256.Int,
) error {
	if value == nil || value.IsZero() {
		return errors.INTERNAL_ERROR.New("deposit value must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	balance, err := s.getOrCreateBalance(ctx, token, depositor)
	if err != nil {
		return err
	}

	balance.IncreaseAvailable(value)
	if err := s.repoManager.Balances().Upsert(ctx, *balance); err != nil {
		return errors.INTERNAL_ERROR.Wrap(err)
	}

	log.Debugf("credited %s of token %s to %s", value, token, depositor)
	s.publishEvent(domain.Deposited{Token: token, Depositor: depositor, Value: value})
	return nil
}

func (s *service) InitiateWithdrawal(
	ctx context.Context, token, depositor common.Address, value *uint256.Int,
) error {
	if value == nil || value.IsZero() {
		return errors.INTERNAL_ERROR.New("withdrawal value must be positive")
	}

	height, err := s.currentHeight(ctx)
	if err != nil {
		return errors.INTERNAL_ERROR.Wrap(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	balance, err := s.getOrCreateBalance(ctx, token, depositor)
	if err != nil {
		return err
	}

	if err := balance.MoveToWithdrawing(value, height+s.withdrawalDelay); err != nil {
		return err
	}
	if err := s.repoManager.Balances().Upsert(ctx, *balance); err != nil {
		return errors.INTERNAL_ERROR.Wrap(err)
	}

	s.publishEvent(domain.WithdrawalInitiated{
		Token: token, Depositor: depositor, Value: value,
		WithdrawableAtBlock: balance.WithdrawableAtBlock,
	})
	s.scheduleWithdrawalReady(token, depositor, balance.WithdrawableAtBlock)
	return nil
}

func (s *service) Withdraw(
	ctx context.Context, token, depositor common.Address,
) (*uint256.Int, error) {
	height, err := s.currentHeight(ctx)
	if err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	balance, err := s.repoManager.Balances().Get(ctx, token, depositor)
	if err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(err)
	}
	if balance == nil || balance.Withdrawing.IsZero() {
		return nil, errors.NO_WITHDRAWING_BALANCE.
			New("no withdrawing balance for %s on token %s", depositor, token).
			WithMetadata(errors.BalanceMetadata{
				Token: token.Hex(), Depositor: depositor.Hex(),
			})
	}
	if height < balance.WithdrawableAtBlock {
		return nil, errors.WITHDRAWAL_DELAY_NOT_ELAPSED.
			New("withdrawal available at block %d, current block is %d",
				balance.WithdrawableAtBlock, height).
			WithMetadata(errors.WithdrawalDelayMetadata{
				Token: token.Hex(), Depositor: depositor.Hex(),
				WithdrawableAtBlock: balance.WithdrawableAtBlock,
				CurrentBlock:        height,
			})
	}

	withdrawn, err := balance.EmptyWithdrawing()
	if err != nil {
		return nil, err
	}
	if err := s.repoManager.Balances().Upsert(ctx, *balance); err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(err)
	}
	if err := s.tokens.Transfer(ctx, token, depositor, withdrawn); err != nil {
		log.WithError(err).Warn("token transfer failed after withdrawal debit")
	}

	s.publishEvent(domain.WithdrawalCompleted{
		Token: token, Depositor: depositor, Value: withdrawn,
	})
	return withdrawn, nil
}

func (s *service) GetBalance(
	ctx context.Context, token, depositor common.Address,
) (*BalanceInfo, error) {
	height, err := s.currentHeight(ctx)
	if err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(err)
	}

	balance, err := s.repoManager.Balances().Get(ctx, token, depositor)
	if err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(err)
	}
	if balance == nil {
		balance = domain.NewBalance(token, depositor)
	}

	return &BalanceInfo{
		Token:               token,
		Depositor:           depositor,
		Total:               balance.Total(),
		Available:           balance.Available.Clone(),
		Withdrawing:         balance.Withdrawing.Clone(),
		Withdrawable:        balance.WithdrawableAt(height),
		WithdrawableAtBlock: balance.WithdrawableAtBlock,
		CurrentBlock:        height,
	}, nil
}

// plannedBurn is a fully validated intent awaiting debit.
type plannedBurn struct {
	token     common.Address
	depositor common.Address
	specHash  common.Hash
	value     *uint256.Int
	fee       *uint256.Int
}

func (s *service) GatewayBurn(ctx context.Context, batch BurnBatch) (*BurnReport, error) {
	if len(batch.Payloads) == 0 {
		return nil, errors.NO_RELEVANT_BURN_INTENTS.New("empty burn batch")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	height, err := s.currentHeight(ctx)
	if err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(err)
	}

	// the outer signature gates everything else, it is checked before any
	// payload is even parsed
	recovered, err := eip712.RecoverSigner(batch.Digest(), batch.Signature)
	if err != nil {
		return nil, errors.INVALID_BURN_SIGNER.Wrap(err)
	}
	if recovered != s.burnSigner {
		return nil, errors.INVALID_BURN_SIGNER.
			New("batch signed by %s, authorized burn signer is %s", recovered, s.burnSigner).
			WithMetadata(errors.BurnSignerMetadata{Recovered: recovered.Hex()})
	}

	var (
		planned     []plannedBurn
		batchToken  *common.Address
		numSkipped  int
		intentIndex int
		seenHashes  = make(map[common.Hash]struct{})
	)

	for payloadIndex, signed := range batch.Payloads {
		intents, signer, err := s.decodePayload(payloadIndex, signed)
		if err != nil {
			return nil, err
		}

		for i, intent := range intents {
			fee := signed.Fees[i]
			pb, skipped, err := s.validateIntent(
				ctx, intent, fee, signer, height, batchToken, seenHashes, intentIndex,
			)
			if err != nil {
				return nil, err
			}
			intentIndex++
			if skipped {
				numSkipped++
				continue
			}

			if batchToken == nil {
				batchToken = &pb.token
			}
			seenHashes[pb.specHash] = struct{}{}
			planned = append(planned, *pb)
		}
	}

	if len(planned) == 0 {
		return nil, errors.NO_RELEVANT_BURN_INTENTS.
			New("no intent in the batch targets domain %d", s.chainDomain)
	}

	report, err := s.applyBurns(ctx, planned, height)
	if err != nil {
		return nil, err
	}
	report.NumSkipped = numSkipped
	return report, nil
}

// decodePayload parses one signed payload into its intents and recovers the source
// signer from the payload signature. It accepts both a single BurnIntent and a
// BurnIntentSet.
func (s *service) decodePayload(
	payloadIndex int, signed SignedBurnPayload,
) ([]payload.BurnIntent, common.Address, error) {
	buf := signed.Payload
	malformed := func(cause error) error {
		return errors.MALFORMED_PAYLOAD.Wrap(cause).WithMetadata(errors.PayloadMetadata{
			Payload: truncatedHex(buf),
		})
	}

	var (
		intents   []payload.BurnIntent
		typedHash common.Hash
	)
	switch {
	case hasMagic(buf, payload.BurnIntentSetMagic):
		set, err := payload.CastBurnIntentSet(buf)
		if err != nil {
			return nil, common.Address{}, malformed(err)
		}
		if err := set.Validate(); err != nil {
			return nil, common.Address{}, malformed(err)
		}
		if len(signed.Fees) != int(set.NumElements()) {
			return nil, common.Address{}, errors.MISMATCHED_BURN.
				New("payload %d carries %d intents but %d fees",
					payloadIndex, set.NumElements(), len(signed.Fees)).
				WithMetadata(errors.MismatchedBurnMetadata{
					BurnIndex:   payloadIndex,
					NumFees:     len(signed.Fees),
					NumElements: int(set.NumElements()),
				})
		}

		typedHash, err = set.TypedDataHash()
		if err != nil {
			return nil, common.Address{}, malformed(err)
		}

		cursor, err := set.Cursor()
		if err != nil {
			return nil, common.Address{}, malformed(err)
		}
		for !cursor.Done() {
			intent, err := cursor.Next()
			if err != nil {
				return nil, common.Address{}, malformed(err)
			}
			intents = append(intents, intent)
		}

	default:
		intent, err := payload.CastBurnIntent(buf)
		if err != nil {
			return nil, common.Address{}, malformed(err)
		}
		if err := intent.Validate(); err != nil {
			return nil, common.Address{}, malformed(err)
		}
		if len(signed.Fees) != 1 {
			return nil, common.Address{}, errors.MISMATCHED_BURN.
				New("payload %d carries 1 intent but %d fees", payloadIndex, len(signed.Fees)).
				WithMetadata(errors.MismatchedBurnMetadata{
					BurnIndex: payloadIndex, NumFees: len(signed.Fees), NumElements: 1,
				})
		}
		typedHash = intent.TypedDataHash()
		intents = []payload.BurnIntent{intent}
	}

	signer, err := eip712.RecoverSigner(s.signingDomain.Digest(typedHash), signed.Signature)
	if err != nil {
		return nil, common.Address{}, malformed(err)
	}
	return intents, signer, nil
}

// validateIntent runs every per-intent check of a burn. It returns skipped=true for
// intents addressed to a foreign source domain, which count against nothing but the
// skip tally. Zero-value intents poison the whole batch no matter their domain.
func (s *service) validateIntent(
	ctx context.Context,
	intent payload.BurnIntent,
	fee *uint256.Int,
	signer common.Address,
	height uint64,
	batchToken *common.Address,
	seenHashes map[common.Hash]struct{},
	intentIndex int,
) (*plannedBurn, bool, error) {
	spec := intent.Spec()

	if spec.Value().IsZero() {
		return nil, false, errors.INTENT_VALUE_MUST_BE_POSITIVE.
			New("intent %d has zero value", intentIndex).
			WithMetadata(errors.IntentIndexMetadata{IntentIndex: intentIndex})
	}

	if spec.SourceDomain() != s.chainDomain {
		log.Tracef("skipping intent %d for foreign domain %d", intentIndex, spec.SourceDomain())
		return nil, true, nil
	}

	if sourceContract := spec.SourceContract(); sourceContract != s.walletContract {
		return nil, false, errors.INVALID_SOURCE_CONTRACT.
			New("intent %d targets an unknown wallet contract", intentIndex).
			WithMetadata(errors.SourceContractMetadata{
				IntentIndex:    intentIndex,
				SourceContract: hex.EncodeToString(sourceContract[:]),
				WalletContract: hex.EncodeToString(s.walletContract[:]),
			})
	}

	token := eip712.AddressFromBytes32(spec.SourceToken())
	supported, err := s.repoManager.Tokens().IsSupported(ctx, token)
	if err != nil {
		return nil, false, errors.INTERNAL_ERROR.Wrap(err)
	}
	if !supported {
		return nil, false, errors.UNSUPPORTED_TOKEN.
			New("intent %d burns unsupported token %s", intentIndex, token).
			WithMetadata(errors.TokenMetadata{IntentIndex: intentIndex, Token: token.Hex()})
	}

	declaredSigner := eip712.AddressFromBytes32(spec.SourceSigner())
	if declaredSigner != signer {
		return nil, false, errors.INVALID_INTENT_SIGNER.
			New("intent %d declares signer %s, signature recovers %s",
				intentIndex, declaredSigner, signer).
			WithMetadata(errors.IntentSignerMetadata{
				IntentIndex:  intentIndex,
				SourceSigner: declaredSigner.Hex(),
				Recovered:    signer.Hex(),
			})
	}

	depositor := eip712.AddressFromBytes32(spec.SourceDepositor())
	if signer != depositor {
		authorized, err := s.repoManager.Delegations().
			WasEverAuthorized(ctx, token, depositor, signer)
		if err != nil {
			return nil, false, errors.INTERNAL_ERROR.Wrap(err)
		}
		if !authorized {
			return nil, false, errors.UNAUTHORIZED_DELEGATE.
				New("intent %d signed by %s, never a delegate of %s", intentIndex, signer, depositor).
				WithMetadata(errors.DelegateMetadata{
					IntentIndex: intentIndex,
					Signer:      signer.Hex(),
					Depositor:   depositor.Hex(),
					Token:       token.Hex(),
				})
		}
	}

	if intent.MaxBlockHeight().Lt(uint256.NewInt(height)) {
		return nil, false, errors.INTENT_EXPIRED.
			New("intent %d expired at block %s, current block is %d",
				intentIndex, intent.MaxBlockHeight(), height).
			WithMetadata(errors.IntentExpiredMetadata{
				IntentIndex:    intentIndex,
				MaxBlockHeight: intent.MaxBlockHeight().String(),
				CurrentBlock:   height,
			})
	}

	if fee == nil {
		fee = uint256.NewInt(0)
	}
	if fee.Gt(intent.MaxFee()) {
		return nil, false, errors.BURN_FEE_TOO_HIGH.
			New("intent %d charges fee %s above the signed maximum %s",
				intentIndex, fee, intent.MaxFee()).
			WithMetadata(errors.BurnFeeMetadata{
				IntentIndex: intentIndex,
				Fee:         fee.String(),
				MaxFee:      intent.MaxFee().String(),
			})
	}

	if batchToken != nil && token != *batchToken {
		return nil, false, errors.NOT_ALL_SAME_TOKEN.
			New("intent %d burns %s, batch already burns %s", intentIndex, token, *batchToken).
			WithMetadata(errors.MixedTokenMetadata{
				IntentIndex: intentIndex,
				Token:       token.Hex(),
				BatchToken:  batchToken.Hex(),
			})
	}

	specHash := spec.Hash()
	if _, dup := seenHashes[specHash]; dup {
		return nil, false, replayError(intentIndex, specHash)
	}
	used, err := s.liveStore.SpecHashes().Includes(ctx, specHash)
	if err != nil {
		return nil, false, errors.INTERNAL_ERROR.Wrap(err)
	}
	if used {
		return nil, false, replayError(intentIndex, specHash)
	}

	return &plannedBurn{
		token:     token,
		depositor: depositor,
		specHash:  specHash,
		value:     spec.Value(),
		fee:       fee.Clone(),
	}, false, nil
}

// applyBurns debits every planned burn, persists the records and settles the batch
// through the token service. Every spec hash is marked used before its debit: a burn
// that finds less balance than requested still consumes the hash.
func (s *service) applyBurns(
	ctx context.Context, planned []plannedBurn, height uint64,
) (*BurnReport, error) {
	var (
		token      = planned[0].token
		totalValue = uint256.NewInt(0)
		totalFee   = uint256.NewInt(0)
		burns      = make([]domain.Burn, 0, len(planned))
		events     = make([]domain.Event, 0, len(planned))
		balances   = make(map[string]*domain.Balance)
		now        = time.Now().Unix()
	)

	for _, pb := range planned {
		if _, err := s.liveStore.SpecHashes().Add(ctx, pb.specHash); err != nil {
			return nil, errors.INTERNAL_ERROR.Wrap(err)
		}

		key := balanceKey(pb.token, pb.depositor)
		balance, ok := balances[key]
		if !ok {
			var err error
			balance, err = s.getOrCreateBalance(ctx, pb.token, pb.depositor)
			if err != nil {
				return nil, err
			}
			balances[key] = balance
		}

		requested := new(uint256.Int).Add(pb.value, pb.fee)
		fromAvailable, fromWithdrawing := balance.Reduce(requested)
		debited := new(uint256.Int).Add(fromAvailable, fromWithdrawing)

		value, fee := pb.value, pb.fee
		if debited.Lt(requested) {
			// should never happen once deposits are the only credit path, but
			// the burn still stands: the value is made whole first, the fee
			// absorbs the shortfall
			log.WithFields(log.Fields{
				"token": pb.token, "depositor": pb.depositor,
				"requested": requested, "debited": debited,
			}).Warn("burn debit found insufficient balance")
			events = append(events, domain.InsufficientBalance{
				Token: pb.token, Depositor: pb.depositor, SpecHash: pb.specHash,
				Requested: requested, Debited: debited,
			})

			if debited.Gt(pb.value) {
				fee = new(uint256.Int).Sub(debited, pb.value)
			} else {
				fee = uint256.NewInt(0)
				value = debited.Clone()
			}
		}

		totalValue.Add(totalValue, value)
		totalFee.Add(totalFee, fee)
		burns = append(burns, domain.Burn{
			Id:              uuid.NewString(),
			Token:           pb.token,
			Depositor:       pb.depositor,
			SpecHash:        pb.specHash,
			Value:           value,
			Fee:             fee,
			FromAvailable:   fromAvailable,
			FromWithdrawing: fromWithdrawing,
			BlockHeight:     height,
			CreatedAt:       now,
		})
		events = append(events, domain.GatewayBurned{
			Token: pb.token, Depositor: pb.depositor, SpecHash: pb.specHash,
			Value: value, Fee: fee,
		})
	}

	for _, balance := range balances {
		if err := s.repoManager.Balances().Upsert(ctx, *balance); err != nil {
			return nil, errors.INTERNAL_ERROR.Wrap(err)
		}
	}
	if err := s.repoManager.Burns().Add(ctx, burns); err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(err)
	}

	if !totalFee.IsZero() {
		if err := s.tokens.Transfer(ctx, token, s.feeRecipient, totalFee); err != nil {
			log.WithError(err).Warn("fee transfer failed after burn settlement")
		}
	}
	if !totalValue.IsZero() {
		if err := s.tokens.Burn(ctx, token, totalValue); err != nil {
			log.WithError(err).Warn("token burn failed after burn settlement")
		}
	}

	for _, event := range events {
		s.publishEvent(event)
	}

	log.Infof(
		"executed burn batch: %d intents, %s burned, %s collected in fees",
		len(burns), totalValue, totalFee,
	)
	return &BurnReport{
		BatchId:     uuid.NewString(),
		Token:       token,
		TotalValue:  totalValue,
		TotalFee:    totalFee,
		NumIntents:  len(burns),
		BlockHeight: height,
	}, nil
}

func (s *service) ListBurns(ctx context.Context) ([]domain.Burn, error) {
	return s.repoManager.Burns().GetAll(ctx)
}

func (s *service) SetBurnSigner(ctx context.Context, signer common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.burnSigner
	if err := s.repoManager.Settings().Upsert(ctx, domain.Settings{
		BurnSigner: signer, FeeRecipient: s.feeRecipient,
	}); err != nil {
		return errors.INTERNAL_ERROR.Wrap(err)
	}
	s.burnSigner = signer

	s.publishEvent(domain.BurnSignerChanged{OldSigner: old, NewSigner: signer})
	return nil
}

func (s *service) SetFeeRecipient(ctx context.Context, recipient common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.feeRecipient
	if err := s.repoManager.Settings().Upsert(ctx, domain.Settings{
		BurnSigner: s.burnSigner, FeeRecipient: recipient,
	}); err != nil {
		return errors.INTERNAL_ERROR.Wrap(err)
	}
	s.feeRecipient = recipient

	s.publishEvent(domain.FeeRecipientChanged{OldRecipient: old, NewRecipient: recipient})
	return nil
}

func (s *service) SupportToken(ctx context.Context, token common.Address) error {
	if err := s.repoManager.Tokens().Support(ctx, token); err != nil {
		return errors.INTERNAL_ERROR.Wrap(err)
	}
	s.publishEvent(domain.TokenSupported{Token: token})
	return nil
}

func (s *service) UnsupportToken(ctx context.Context, token common.Address) error {
	if err := s.repoManager.Tokens().Unsupport(ctx, token); err != nil {
		return errors.INTERNAL_ERROR.Wrap(err)
	}
	s.publishEvent(domain.TokenUnsupported{Token: token})
	return nil
}

func (s *service) AddDelegate(
	ctx context.Context, token, depositor, delegate common.Address,
) error {
	if err := s.repoManager.Delegations().Add(ctx, domain.Delegation{
		Token:     token,
		Depositor: depositor,
		Delegate:  delegate,
		CreatedAt: time.Now().Unix(),
	}); err != nil {
		return errors.INTERNAL_ERROR.Wrap(err)
	}
	s.publishEvent(domain.DelegateAdded{Token: token, Depositor: depositor, Delegate: delegate})
	return nil
}

func (s *service) RevokeDelegate(
	ctx context.Context, token, depositor, delegate common.Address,
) error {
	if err := s.repoManager.Delegations().Revoke(ctx, token, depositor, delegate); err != nil {
		return errors.INTERNAL_ERROR.Wrap(err)
	}
	s.publishEvent(domain.DelegateRevoked{Token: token, Depositor: depositor, Delegate: delegate})
	return nil
}

func (s *service) getOrCreateBalance(
	ctx context.Context, token, depositor common.Address,
) (*domain.Balance, error) {
	balance, err := s.repoManager.Balances().Get(ctx, token, depositor)
	if err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(err)
	}
	if balance == nil {
		balance = domain.NewBalance(token, depositor)
	}
	return balance, nil
}

// currentHeight asks the chain clock for the tip, falling back to the last cached
// value when the clock is unreachable.
func (s *service) currentHeight(ctx context.Context) (uint64, error) {
	height, err := s.chainClock.CurrentHeight(ctx)
	if err != nil {
		cached, cacheErr := s.liveStore.ChainTip().Get(ctx)
		if cacheErr == nil && cached > 0 {
			log.WithError(err).Warn("chain clock unreachable, using cached tip")
			return cached, nil
		}
		return 0, err
	}

	if err := s.liveStore.ChainTip().Set(ctx, height); err != nil {
		log.WithError(err).Warn("failed to cache chain tip")
	}
	return height, nil
}

func (s *service) watchChainTip() {
	defer s.wg.Done()

	ticker := time.NewTicker(chainTipPollInterval)
	defer ticker.Stop()

	ctx := context.Background()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			height, err := s.chainClock.CurrentHeight(ctx)
			if err != nil {
				log.WithError(err).Warn("failed to fetch chain tip")
				continue
			}
			if err := s.liveStore.ChainTip().Set(ctx, height); err != nil {
				log.WithError(err).Warn("failed to cache chain tip")
			}
		}
	}
}

func (s *service) scheduleWithdrawalReady(token, depositor common.Address, atBlock uint64) {
	if s.sweeper.Unit() != ports.BlockHeight {
		return
	}
	if err := s.sweeper.ScheduleTaskOnce(int64(atBlock), func() {
		s.publishEvent(domain.WithdrawalReady{Token: token, Depositor: depositor})
	}); err != nil {
		log.WithError(err).Warn("failed to schedule withdrawal readiness")
	}
}

func (s *service) publishEvent(event domain.Event) {
	select {
	case s.eventsCh <- event:
	default:
		log.Warnf("events channel full, dropping %s", event.Type())
	}
}

func replayError(intentIndex int, specHash common.Hash) error {
	return errors.SPEC_HASH_ALREADY_USED.
		New("intent %d reuses already executed spec hash %s", intentIndex, specHash).
		WithMetadata(errors.SpecHashMetadata{
			IntentIndex: intentIndex,
			SpecHash:    specHash.Hex(),
		})
}

func hasMagic(buf []byte, magic [transferspec.MagicLength]byte) bool {
	return len(buf) >= transferspec.MagicLength &&
		bytes.Equal(buf[:transferspec.MagicLength], magic[:])
}

func truncatedHex(buf []byte) string {
	const maxLen = 256
	if len(buf) > maxLen {
		return hex.EncodeToString(buf[:maxLen]) + "..."
	}
	return hex.EncodeToString(buf)
}

// tokenServiceUnimplemented stands in when no on-chain token mover is wired: debits
// are accounted in the ledger only.
type tokenServiceUnimplemented struct{}

func (tokenServiceUnimplemented) Burn(
	_ context.Context, token common.Address, value *uint256.Int,
) error {
	log.Debugf("token service not wired, skipping burn of %s %s", value, token)
	return nil
}

func (tokenServiceUnimplemented) Transfer(
	_ context.Context, token, to common.Address, value *uint256.Int,
) error {
	log.Debugf("token service not wired, skipping transfer of %s %s to %s", value, token, to)
	return nil
}
