// Package main provides the entry point for the jobready backend.
// It initializes and runs a web server using the Fiber framework that
// exposes a REST API for accounts, role based access control, resume
// submission and readiness scores. The application uses gorm for data
// persistence and supports local, LDAP and OIDC authentication.
package main
