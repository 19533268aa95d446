package testutil

import (
	"net/http"

	jwttoken "veristage/internal/jwt_token"
	"veristage/internal/platform/middleware"
)

// WithClaims attaches token claims to the request context, simulating what
// the auth middleware does for an authenticated request.
func WithClaims(req *http.Request, claims *jwttoken.Claims) *http.Request {
	return req.WithContext(middleware.WithClaims(req.Context(), claims))
}

// WithApplicant attaches applicant claims for the given ID and account type.
func WithApplicant(req *http.Request, applicantID, accountType string) *http.Request {
	return WithClaims(req, &jwttoken.Claims{
		ApplicantID: applicantID,
		AccountType: accountType,
		Role:        jwttoken.RoleApplicant,
	})
}
