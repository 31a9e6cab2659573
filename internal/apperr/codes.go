package apperr

// Code is a stable machine-readable error code returned to clients.
type Code string

const (
	CodeInternal         Code = "INTERNAL"
	CodeValidationFailed Code = "VALIDATION_FAILED"

	// Auth
	CodeUnauthenticated    Code = "UNAUTHENTICATED"
	CodeForbidden          Code = "FORBIDDEN"
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	CodeEmailNotVerified   Code = "EMAIL_NOT_VERIFIED"
	CodeInvalidOTP         Code = "INVALID_OTP"
	CodeUserExists         Code = "USER_EXISTS"
	CodeUserNotFound       Code = "USER_NOT_FOUND"

	// Events and participation
	CodeEventNotFound        Code = "EVENT_NOT_FOUND"
	CodeEventFull            Code = "EVENT_FULL"
	CodeEventRequiresPayment Code = "EVENT_REQUIRES_PAYMENT"
	CodeEventIsFree          Code = "EVENT_IS_FREE"
	CodeEventNotJoinable     Code = "EVENT_NOT_JOINABLE"
	CodeAlreadyParticipating Code = "ALREADY_PARTICIPATING"
	CodeNotParticipant       Code = "NOT_PARTICIPANT"

	// Payments
	CodePaymentNotFound         Code = "PAYMENT_NOT_FOUND"
	CodePaymentAlreadyCompleted Code = "PAYMENT_ALREADY_COMPLETED"
	CodePaymentTerminal         Code = "PAYMENT_TERMINAL"
	CodePaymentTransition       Code = "PAYMENT_INVALID_TRANSITION"
	CodeProviderUnavailable     Code = "PROVIDER_UNAVAILABLE"
	CodeWebhookSignature        Code = "WEBHOOK_SIGNATURE_INVALID"

	// Reviews, favourites, host requests
	CodeReviewNotFound       Code = "REVIEW_NOT_FOUND"
	CodeReviewExists         Code = "REVIEW_EXISTS"
	CodeReviewOwnEvent       Code = "REVIEW_OWN_EVENT"
	CodeFavouriteExists      Code = "FAVOURITE_EXISTS"
	CodeFavouriteNotFound    Code = "FAVOURITE_NOT_FOUND"
	CodeHostRequestNotFound  Code = "HOST_REQUEST_NOT_FOUND"
	CodeHostRequestExists    Code = "HOST_REQUEST_EXISTS"
	CodeHostRequestNotUser   Code = "HOST_REQUEST_ROLE"
	CodeUserNotHost          Code = "USER_NOT_HOST"
	CodeStorageUnavailable   Code = "STORAGE_UNAVAILABLE"
	CodeMailUnavailable      Code = "MAIL_UNAVAILABLE"
	CodeCacheUnavailable     Code = "CACHE_UNAVAILABLE"
	CodeUploadInvalid        Code = "UPLOAD_INVALID"
	CodeEventStatusForbidden Code = "EVENT_STATUS_FORBIDDEN"
	CodeCapacityBelowSeats   Code = "CAPACITY_BELOW_PARTICIPANTS"
	CodeEventChanged         Code = "EVENT_CHANGED"
)

// Sentinels returned by repositories and services. Compare with errors.Is.
var (
	ErrEventNotFound       = New(KindNotFound, CodeEventNotFound, "event not found")
	ErrUserNotFound        = New(KindNotFound, CodeUserNotFound, "user not found")
	ErrPaymentNotFound     = New(KindNotFound, CodePaymentNotFound, "payment not found")
	ErrReviewNotFound      = New(KindNotFound, CodeReviewNotFound, "review not found")
	ErrFavouriteNotFound   = New(KindNotFound, CodeFavouriteNotFound, "favourite not found")
	ErrHostRequestNotFound = New(KindNotFound, CodeHostRequestNotFound, "host request not found")
	ErrNotParticipant      = New(KindNotFound, CodeNotParticipant, "event not found or you are not a participant")

	ErrEventFull            = New(KindConflict, CodeEventFull, "event is full")
	ErrAlreadyParticipating = New(KindConflict, CodeAlreadyParticipating, "you are already participating in this event")
	ErrPaymentCompleted     = New(KindConflict, CodePaymentAlreadyCompleted, "you have already paid for this event")
	ErrUserExists           = New(KindConflict, CodeUserExists, "user already exists")
	ErrReviewExists         = New(KindConflict, CodeReviewExists, "you have already reviewed this event")
	ErrFavouriteExists      = New(KindConflict, CodeFavouriteExists, "event already in favourites")
	ErrHostRequestExists    = New(KindConflict, CodeHostRequestExists, "a host request already exists for this user")
	ErrEventChanged         = New(KindConflict, CodeEventChanged, "event changed while it was being edited, try again")

	ErrEventRequiresPayment = New(KindInvalidState, CodeEventRequiresPayment, "this event requires payment, use the payment endpoint")
	ErrEventIsFree          = New(KindInvalidState, CodeEventIsFree, "this event is free, no payment required")
	ErrEventNotJoinable     = New(KindInvalidState, CodeEventNotJoinable, "cannot participate in this event")
	ErrPaymentTerminal      = New(KindInvalidState, CodePaymentTerminal, "payment is already in a terminal state")
	ErrPaymentTransition    = New(KindInvalidState, CodePaymentTransition, "payment status change not allowed")
	ErrCapacityBelowSeats   = New(KindInvalidState, CodeCapacityBelowSeats, "max participants cannot be lower than current participants")

	ErrUnauthenticated    = New(KindUnauthorized, CodeUnauthenticated, "you are not authorized")
	ErrForbidden          = New(KindForbidden, CodeForbidden, "forbidden")
	ErrInvalidCredentials = New(KindUnauthorized, CodeInvalidCredentials, "email or password is incorrect")
	ErrWebhookSignature   = New(KindValidation, CodeWebhookSignature, "webhook signature verification failed")
)
