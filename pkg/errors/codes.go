package errors

import "strings"

// ErrorCode is a string representation of a specific error condition.
// Codes are "<MODULE>_<NNN>"; ModuleForCode recovers the module prefix.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeNotImplemented     ErrorCode = "COMMON_016"
	ErrCodeIOFailure          ErrorCode = "COMMON_017"
	ErrCodeMessageQueue       ErrorCode = "COMMON_018"
	ErrCodeStorage            ErrorCode = "COMMON_019"
)

// Chemistry Error Codes
const (
	ErrCodeInvalidSMILES         ErrorCode = "CHEM_001"
	ErrCodeStandardizationFailed ErrorCode = "CHEM_002"
	ErrCodeInvalidReactionRule   ErrorCode = "CHEM_003"
	ErrCodeReactionFailed        ErrorCode = "CHEM_004"
	ErrCodeCoreactantUnresolved  ErrorCode = "CHEM_005"
	ErrCodeFingerprintFailed     ErrorCode = "CHEM_006"
	ErrCodeReactorUnavailable    ErrorCode = "CHEM_007"
	ErrCodeDescriptorUnsupported ErrorCode = "CHEM_008"
)

// Evolution Error Codes
const (
	ErrCodeInvalidParentCount   ErrorCode = "EVO_001"
	ErrCodeEmptyRulePool        ErrorCode = "EVO_002"
	ErrCodeEmptyPopulation      ErrorCode = "EVO_003"
	ErrCodeEvaluationFailed     ErrorCode = "EVO_004"
	ErrCodeUnknownAlgorithm     ErrorCode = "EVO_005"
	ErrCodeUnknownCaseStudy     ErrorCode = "EVO_006"
	ErrCodeRandomSourceRequired ErrorCode = "EVO_007"
	ErrCodeObjectiveMismatch    ErrorCode = "EVO_008"
)

// Aliases used at call sites.
const (
	CodeOK                 = ErrorCode("OK")
	CodeUnknown            = ErrorCode("UNKNOWN")
	CodeInternal           = ErrCodeInternal
	CodeInvalidParam       = ErrCodeBadRequest
	CodeNotFound           = ErrCodeNotFound
	CodeConflict           = ErrCodeConflict
	CodeServiceUnavailable = ErrCodeServiceUnavailable
	CodeNotImplemented     = ErrCodeNotImplemented
	CodeIOFailure          = ErrCodeIOFailure

	CodeInvalidSMILES         = ErrCodeInvalidSMILES
	CodeStandardizationFailed = ErrCodeStandardizationFailed
	CodeInvalidReactionRule   = ErrCodeInvalidReactionRule

	CodeInvalidParentCount = ErrCodeInvalidParentCount
	CodeEvaluationFailed   = ErrCodeEvaluationFailed
)

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal error",
	ErrCodeBadRequest:         "invalid parameter",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "operation timed out",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeNotImplemented:     "not implemented",
	ErrCodeIOFailure:          "I/O failure",
	ErrCodeMessageQueue:       "message queue error",
	ErrCodeStorage:            "object storage error",

	ErrCodeInvalidSMILES:         "invalid SMILES",
	ErrCodeStandardizationFailed: "standardization failed",
	ErrCodeInvalidReactionRule:   "invalid reaction rule",
	ErrCodeReactionFailed:        "reaction failed",
	ErrCodeCoreactantUnresolved:  "coreactant could not be resolved",
	ErrCodeFingerprintFailed:     "fingerprint generation failed",
	ErrCodeReactorUnavailable:    "reaction engine unavailable",
	ErrCodeDescriptorUnsupported: "unsupported descriptor",

	ErrCodeInvalidParentCount:   "invalid number of parents",
	ErrCodeEmptyRulePool:        "reaction rule pool is empty",
	ErrCodeEmptyPopulation:      "population is empty",
	ErrCodeEvaluationFailed:     "evaluation failed",
	ErrCodeUnknownAlgorithm:     "unknown algorithm",
	ErrCodeUnknownCaseStudy:     "unknown case study",
	ErrCodeRandomSourceRequired: "random source is required",
	ErrCodeObjectiveMismatch:    "objective vector length mismatch",
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 1 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
