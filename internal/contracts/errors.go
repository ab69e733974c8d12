package contracts

import "errors"

// Sentinel errors shared by every layer
// ⭐ SSOT: HTTP 상태 코드 매핑은 api 패키지에서 errors.Is 로 수행
var (
	// ErrNotFound means the requested country, region or stats record is not in the snapshot
	ErrNotFound = errors.New("not found")

	// ErrNotReady means no snapshot has been published yet
	ErrNotReady = errors.New("data not yet loaded")

	// ErrUnresolvedIdentity means a source name could not be mapped to a country
	ErrUnresolvedIdentity = errors.New("unresolved country identity")

	// ErrDateMismatch means two data points for different calendar days were combined
	ErrDateMismatch = errors.New("date mismatch")

	// ErrEmptySeries means an operation needed at least one observed point
	ErrEmptySeries = errors.New("empty series")

	// ErrRefreshInProgress means another ingestion run owns the writer side
	ErrRefreshInProgress = errors.New("refresh already in progress")
)
