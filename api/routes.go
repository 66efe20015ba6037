package api

// Route constants for the API endpoints

const (
	// Health endpoint
	PingEndpoint = "/ping" // GET: Health check

	// View key endpoints
	ViewKeyURLParam  = "viewKeyId"                                     // URL parameter for view key ID
	ViewKeysEndpoint = "/viewkeys"                                     // POST: Issue a view key
	ViewKeyEndpoint  = ViewKeysEndpoint + "/{" + ViewKeyURLParam + "}" // GET: Fetch, DELETE: Revoke

	// Audit report endpoint
	ReportEndpoint = ViewKeyEndpoint + "/report" // GET: Generate a report, params: from, to

	// Verifier endpoint
	VerifierEndpoint = "/verifier" // GET: Exported verification key material
)
