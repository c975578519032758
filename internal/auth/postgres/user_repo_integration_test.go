// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

//go:build integration

package postgres_test

import (
	"context"
	"sync"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/authcore/authcore/internal/auth"
	"github.com/authcore/authcore/internal/auth/postgres"
	"github.com/authcore/authcore/internal/fault"
)

var _ = Describe("UserRepository", func() {
	var (
		ctx  context.Context
		repo *postgres.UserRepository
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = postgres.NewUserRepository(testPool)
		DeferCleanup(func() {
			_, _ = testPool.Exec(context.Background(), `TRUNCATE users RESTART IDENTITY`)
		})
	})

	newUser := func(email string) *auth.User {
		return &auth.User{FirstName: "Jane", LastName: "Doe", Email: email, PasswordHash: "$2a$12$digest"}
	}

	It("creates unconfirmed users with assigned ids", func() {
		u := newUser("jane@x.com")
		Expect(repo.Create(ctx, u)).To(Succeed())
		Expect(u.ID).To(BeNumerically(">", 0))
		Expect(u.CreatedAt).NotTo(BeZero())

		stored, err := repo.GetByID(ctx, u.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(stored.Email).To(Equal("jane@x.com"))
		Expect(stored.Confirmed).To(BeFalse())
	})

	It("rejects duplicate emails regardless of case", func() {
		Expect(repo.Create(ctx, newUser("jane@x.com"))).To(Succeed())

		err := repo.Create(ctx, newUser("JANE@x.com"))
		Expect(fault.KindOf(err)).To(Equal(fault.KindAlreadyRegistered))

		stored, err := repo.GetByEmail(ctx, "Jane@X.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(stored.Email).To(Equal("jane@x.com"))
	})

	It("admits exactly one of concurrent registrations for an email", func() {
		const n = 8
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)
		for range n {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				if err := repo.Create(ctx, newUser("race@x.com")); err == nil {
					mu.Lock()
					wins++
					mu.Unlock()
				} else {
					Expect(fault.KindOf(err)).To(Equal(fault.KindAlreadyRegistered))
				}
			}()
		}
		wg.Wait()
		Expect(wins).To(Equal(1))
	})

	It("confirms users", func() {
		u := newUser("jane@x.com")
		Expect(repo.Create(ctx, u)).To(Succeed())
		Expect(repo.UpdateConfirmed(ctx, u.ID, true)).To(Succeed())

		stored, err := repo.GetByID(ctx, u.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(stored.Confirmed).To(BeTrue())
		Expect(stored.UpdatedAt).To(BeTemporally(">=", stored.CreatedAt))
	})

	It("reports missing users as not found", func() {
		_, err := repo.GetByID(ctx, 424242)
		Expect(err).To(MatchError(auth.ErrNotFound))

		err = repo.UpdateConfirmed(ctx, 424242, true)
		Expect(err).To(MatchError(auth.ErrNotFound))
	})
})
