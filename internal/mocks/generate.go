// Package mocks provides gomock implementations of the ports used by the session resolver,
// identity adapter and HTTP layer.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for our port interfaces.
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	profiles := mocks.NewMockProfileStore(ctrl)
//	profiles.EXPECT().GetProfile(gomock.Any(), "uid-1").Return(doc, nil)
package mocks

// AccountBackend: Authenticate, Register, RequestPasswordReset
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=account_backend_mock.go github.com/kavach-app/kavach/internal/ports AccountBackend

// ProfileStore: GetProfile, SetProfile
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=profile_store_mock.go github.com/kavach-app/kavach/internal/ports ProfileStore

// CredentialStore: Save, Get, Delete
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=credential_store_mock.go github.com/kavach-app/kavach/internal/ports CredentialStore
