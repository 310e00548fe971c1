// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package accounts

import (
	"context"
	"fmt"
)

// NotificationKind identifies why a notification was sent.
type NotificationKind string

// Notification kinds.
const (
	NotificationAccountCreated NotificationKind = "account_created"
	NotificationPasswordReset  NotificationKind = "password_reset"
)

// CredentialsSubject is the subject line of every credentials notification.
const CredentialsSubject = "Your Account Credentials"

// Notification is a plain-text message addressed to a single recipient.
type Notification struct {
	Kind    NotificationKind
	To      string
	Subject string
	Body    string
}

// Notifier delivers notifications. The body carries a plaintext one-time
// password: implementations deliver it to the recipient channel and never
// write it to the application log.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// CredentialsNotification builds the message that hands a one-time password
// to the account holder.
func CredentialsNotification(kind NotificationKind, account *Account, password string) Notification {
	intro := "Your account has been created."
	if kind == NotificationPasswordReset {
		intro = "Your password has been reset."
	}
	body := fmt.Sprintf(
		"Hi %s,\n\n%s\n\nUsername: %s\nPassword: %s\n\n"+
			"Please login and change your password if this is your first time.\n\nRegards,\nAdmin\n",
		account.FirstName, intro, account.Username, password,
	)
	return Notification{
		Kind:    kind,
		To:      account.Email,
		Subject: CredentialsSubject,
		Body:    body,
	}
}
