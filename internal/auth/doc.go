// Package auth provides authentication and authorization for the API.
//
// Authentication supports three sources: local accounts with argon2id
// password hashes, LDAP bind-search-bind, and OIDC authorization code
// flow. All sources resolve to an Account row; sessions are carried by
// short lived JWT access tokens paired with refresh tokens.
//
// Authorization is permission based: an operation is allowed when the
// account is active and is either a superuser or holds the required
// permission through an active role assignment.
package auth
