package errors

import (
	"encoding/json"
	"fmt"

	log "github.com/sirupsen/logrus"
	grpccodes "google.golang.org/grpc/codes"
)

// Code is the type representing a namespace error code.
type Code[MT any] struct {
	Code     uint16
	Name     string
	GrpcCode grpccodes.Code
}

// New creates a new error with the given code and the message
func (c Code[MT]) New(msg string, args ...any) TypedError[MT] {
	return &ErrorImpl[MT]{
		code:  c,
		cause: fmt.Errorf(msg, args...),
	}
}

// Wrap creates a new Error with the given code and the cause error
func (c Code[MT]) Wrap(cause error) TypedError[MT] {
	return &ErrorImpl[MT]{
		code:  c,
		cause: cause,
	}
}

func (c Code[MT]) String() string {
	return fmt.Sprintf("%s (%d)", c.Name, c.Code)
}

type Error interface {
	error
	Log() *log.Entry
	Code() uint16
	CodeName() string
	GrpcCode() grpccodes.Code
	Metadata() map[string]string
}

type TypedError[MT any] interface {
	Error
	WithMetadata(MT) TypedError[MT]
}

// ErrorImpl is the default concrete implementation of TypedError.
type ErrorImpl[MT any] struct {
	code     Code[MT]
	cause    error
	metadata MT
}

func (e *ErrorImpl[MT]) Log() *log.Entry {
	return log.WithField("name", e.code.Name).
		WithField("code", e.code.Code).
		WithField("metadata", e.metadata)
}

func (e *ErrorImpl[MT]) Metadata() map[string]string {
	// convert any metadata to map[string]string
	metadata := make(map[string]string)
	buf, err := json.Marshal(e.metadata)
	if err == nil {
		var genericMap map[string]any
		if err := json.Unmarshal(buf, &genericMap); err == nil {
			for k, v := range genericMap {
				vStr := ""
				if v != nil {
					vStr = fmt.Sprintf("%v", v)
				}
				metadata[k] = vStr
			}
		}
	}
	return metadata
}

func (e *ErrorImpl[MT]) GrpcCode() grpccodes.Code {
	return e.code.GrpcCode
}

func (e *ErrorImpl[MT]) Code() uint16 {
	return e.code.Code
}

func (e *ErrorImpl[MT]) CodeName() string {
	return e.code.Name
}

// Error() implements the error interface.
func (e *ErrorImpl[MT]) Error() string {
	return fmt.Sprintf("%s: %s", e.code.String(), e.cause.Error())
}

func (e *ErrorImpl[MT]) WithMetadata(metadata MT) TypedError[MT] {
	e.metadata = metadata
	return e
}

type PayloadMetadata struct {
	Payload string `json:"payload"`
}

type IntentIndexMetadata struct {
	IntentIndex int `json:"intent_index"`
}

type BurnSignerMetadata struct {
	Recovered string `json:"recovered"`
}

type MismatchedBurnMetadata struct {
	BurnIndex   int `json:"burn_index"`
	NumFees     int `json:"num_fees"`
	NumElements int `json:"num_elements"`
}

type SourceContractMetadata struct {
	IntentIndex    int    `json:"intent_index"`
	SourceContract string `json:"source_contract"`
	WalletContract string `json:"wallet_contract"`
}

type TokenMetadata struct {
	IntentIndex int    `json:"intent_index"`
	Token       string `json:"token"`
}

type MixedTokenMetadata struct {
	IntentIndex int    `json:"intent_index"`
	Token       string `json:"token"`
	BatchToken  string `json:"batch_token"`
}

type IntentSignerMetadata struct {
	IntentIndex  int    `json:"intent_index"`
	SourceSigner string `json:"source_signer"`
	Recovered    string `json:"recovered"`
}

type DelegateMetadata struct {
	IntentIndex int    `json:"intent_index"`
	Signer      string `json:"signer"`
	Depositor   string `json:"depositor"`
	Token       string `json:"token"`
}

type IntentExpiredMetadata struct {
	IntentIndex    int    `json:"intent_index"`
	MaxBlockHeight string `json:"max_block_height"`
	CurrentBlock   uint64 `json:"current_block"`
}

type BurnFeeMetadata struct {
	IntentIndex int    `json:"intent_index"`
	Fee         string `json:"fee"`
	MaxFee      string `json:"max_fee"`
}

type SpecHashMetadata struct {
	IntentIndex int    `json:"intent_index"`
	SpecHash    string `json:"spec_hash"`
}

type BalanceMetadata struct {
	Token     string `json:"token"`
	Depositor string `json:"depositor"`
	Requested string `json:"requested"`
	Available string `json:"available"`
}

type WithdrawalDelayMetadata struct {
	Token               string `json:"token"`
	Depositor           string `json:"depositor"`
	WithdrawableAtBlock uint64 `json:"withdrawable_at_block"`
	CurrentBlock        uint64 `json:"current_block"`
}

var INTERNAL_ERROR = Code[map[string]any]{0, "INTERNAL_ERROR", grpccodes.Internal}

var MALFORMED_PAYLOAD = Code[PayloadMetadata]{
	1,
	"MALFORMED_PAYLOAD",
	grpccodes.InvalidArgument,
}

var INVALID_BURN_SIGNER = Code[BurnSignerMetadata]{
	2,
	"INVALID_BURN_SIGNER",
	grpccodes.PermissionDenied,
}

var MISMATCHED_BURN = Code[MismatchedBurnMetadata]{
	3,
	"MISMATCHED_BURN",
	grpccodes.InvalidArgument,
}

var INTENT_VALUE_MUST_BE_POSITIVE = Code[IntentIndexMetadata]{
	4,
	"INTENT_VALUE_MUST_BE_POSITIVE",
	grpccodes.InvalidArgument,
}

var INVALID_SOURCE_CONTRACT = Code[SourceContractMetadata]{
	5,
	"INVALID_SOURCE_CONTRACT",
	grpccodes.InvalidArgument,
}

var UNSUPPORTED_TOKEN = Code[TokenMetadata]{6, "UNSUPPORTED_TOKEN", grpccodes.InvalidArgument}

var INVALID_INTENT_SIGNER = Code[IntentSignerMetadata]{
	7,
	"INVALID_INTENT_SIGNER",
	grpccodes.InvalidArgument,
}

var UNAUTHORIZED_DELEGATE = Code[DelegateMetadata]{
	8,
	"UNAUTHORIZED_DELEGATE",
	grpccodes.PermissionDenied,
}

var INTENT_EXPIRED = Code[IntentExpiredMetadata]{
	9,
	"INTENT_EXPIRED",
	grpccodes.FailedPrecondition,
}

var BURN_FEE_TOO_HIGH = Code[BurnFeeMetadata]{
	10,
	"BURN_FEE_TOO_HIGH",
	grpccodes.InvalidArgument,
}

var NOT_ALL_SAME_TOKEN = Code[MixedTokenMetadata]{
	11,
	"NOT_ALL_SAME_TOKEN",
	grpccodes.InvalidArgument,
}

var NO_RELEVANT_BURN_INTENTS = Code[any]{
	12,
	"NO_RELEVANT_BURN_INTENTS",
	grpccodes.InvalidArgument,
}

var SPEC_HASH_ALREADY_USED = Code[SpecHashMetadata]{
	13,
	"SPEC_HASH_ALREADY_USED",
	grpccodes.AlreadyExists,
}

var INSUFFICIENT_AVAILABLE_BALANCE = Code[BalanceMetadata]{
	14,
	"INSUFFICIENT_AVAILABLE_BALANCE",
	grpccodes.FailedPrecondition,
}

var NO_WITHDRAWING_BALANCE = Code[BalanceMetadata]{
	15,
	"NO_WITHDRAWING_BALANCE",
	grpccodes.FailedPrecondition,
}

var WITHDRAWAL_DELAY_NOT_ELAPSED = Code[WithdrawalDelayMetadata]{
	16,
	"WITHDRAWAL_DELAY_NOT_ELAPSED",
	grpccodes.FailedPrecondition,
}
