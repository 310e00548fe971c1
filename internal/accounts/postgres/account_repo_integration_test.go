//go:build integration

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package postgres_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/accountd/accountd/internal/accounts"
	"github.com/accountd/accountd/internal/accounts/postgres"
)

func newAccount(username, email string, groups ...string) *accounts.Account {
	a, err := accounts.NewAccount(username, email, "First", "Last", "staff", "hash", groups)
	Expect(err).NotTo(HaveOccurred())
	return a
}

var _ = Describe("AccountRepository", func() {
	var (
		ctx  context.Context
		repo *postgres.AccountRepository
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = postgres.NewAccountRepository(testPool)
	})

	Describe("Create", func() {
		It("stores the account with its groups", func() {
			a := newAccount("alice", "a@x.com", "staff", "ops")
			Expect(repo.Create(ctx, a)).To(Succeed())

			stored, err := repo.GetByUsername(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.ID).To(Equal(a.ID))
			Expect(stored.Groups).To(Equal([]string{"ops", "staff"}))
			Expect(stored.FirstLogin).To(BeTrue())
			Expect(stored.Active).To(BeTrue())
		})

		It("reuses existing groups", func() {
			Expect(repo.Create(ctx, newAccount("alice", "a@x.com", "staff"))).To(Succeed())
			Expect(repo.Create(ctx, newAccount("bob", "b@x.com", "staff"))).To(Succeed())

			var groups int
			Expect(testPool.QueryRow(ctx, `SELECT COUNT(*) FROM groups`).Scan(&groups)).To(Succeed())
			Expect(groups).To(Equal(1))
		})

		It("reports duplicate email and username", func() {
			Expect(repo.Create(ctx, newAccount("alice", "a@x.com"))).To(Succeed())

			err := repo.Create(ctx, newAccount("bob", "a@x.com"))
			Expect(errors.Is(err, accounts.ErrEmailTaken)).To(BeTrue())

			err = repo.Create(ctx, newAccount("alice", "b@x.com", "staff"))
			Expect(errors.Is(err, accounts.ErrUsernameTaken)).To(BeTrue())

			var groups int
			Expect(testPool.QueryRow(ctx, `SELECT COUNT(*) FROM groups`).Scan(&groups)).To(Succeed())
			Expect(groups).To(BeZero(), "failed create must not leave groups behind")
		})
	})

	Describe("lookups", func() {
		It("match exactly", func() {
			Expect(repo.Create(ctx, newAccount("alice", "a@x.com"))).To(Succeed())

			_, err := repo.GetByUsername(ctx, "ALICE")
			Expect(errors.Is(err, accounts.ErrNotFound)).To(BeTrue())
			_, err = repo.GetByEmail(ctx, "A@X.COM")
			Expect(errors.Is(err, accounts.ErrNotFound)).To(BeTrue())
			_, err = repo.GetByID(ctx, ulid.Make())
			Expect(errors.Is(err, accounts.ErrNotFound)).To(BeTrue())
		})
	})

	Describe("Update", func() {
		It("serializes concurrent updates of one account", func() {
			a := newAccount("alice", "a@x.com")
			Expect(repo.Create(ctx, a)).To(Succeed())

			var wg sync.WaitGroup
			for range 8 {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					_, err := repo.Update(ctx, a.ID, func(acc *accounts.Account) error {
						acc.Role += "x"
						return nil
					})
					Expect(err).NotTo(HaveOccurred())
				}()
			}
			wg.Wait()

			stored, err := repo.GetByID(ctx, a.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Role).To(Equal("staffxxxxxxxx"))
		})

		It("leaves the row untouched when mutate fails", func() {
			a := newAccount("alice", "a@x.com")
			Expect(repo.Create(ctx, a)).To(Succeed())

			rejected := errors.New("rejected")
			_, err := repo.Update(ctx, a.ID, func(acc *accounts.Account) error {
				acc.PasswordHash = "changed"
				return rejected
			})
			Expect(err).To(BeIdenticalTo(rejected))

			stored, err := repo.GetByID(ctx, a.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.PasswordHash).To(Equal("hash"))
		})
	})

	Describe("List", func() {
		It("orders by creation time", func() {
			first := newAccount("carol", "c@x.com")
			second := newAccount("alice", "a@x.com")
			second.CreatedAt = first.CreatedAt.Add(time.Second)
			Expect(repo.Create(ctx, first)).To(Succeed())
			Expect(repo.Create(ctx, second)).To(Succeed())

			list, err := repo.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(HaveLen(2))
			Expect(list[0].Username).To(Equal("carol"))
			Expect(list[1].Username).To(Equal("alice"))
		})
	})
})
