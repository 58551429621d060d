package toolbar

// Stable error codes returned to toolbar clients. HTTP status varies per
// site of failure; the code string is the contract.
const (
	CodeInvalidRequest               = "invalid_request"
	CodeInvalidJSON                  = "invalid_json"
	CodeInvalidAppURL                = "invalid_app_url"
	CodeInvalidState                 = "invalid_state"
	CodeStateUserMismatch            = "state_user_mismatch"
	CodeStateTeamMismatch            = "state_team_mismatch"
	CodeStateReplay                  = "state_replay"
	CodeTokenExchangeUnavailable     = "token_exchange_unavailable"
	CodeTokenExchangeInvalidResponse = "token_exchange_invalid_response"
)
