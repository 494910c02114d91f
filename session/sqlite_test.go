// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/choria-io/platcheck/model"
	"github.com/choria-io/platcheck/model/modelmocks"
)

var _ = Describe("SQLiteSessionStore", func() {
	var (
		mockctl *gomock.Controller
		logger  *modelmocks.MockLogger
		path    string
		store   *SQLiteSessionStore
	)

	BeforeEach(func() {
		mockctl = gomock.NewController(GinkgoT())
		logger = quietLogger(mockctl)
		path = filepath.Join(GinkgoT().TempDir(), "state", "history.db")

		var err error
		store, err = NewSQLiteSessionStore(path, logger)
		Expect(err).ToNot(HaveOccurred())
		DeferCleanup(store.Close)
	})

	It("Should require a started session", func() {
		err := store.RecordEvent(checkEvent("vcs", "init", model.CheckPassed))
		Expect(err).To(MatchError("no session has been started"))
	})

	It("Should record and summarize a session", func() {
		Expect(store.StartSession([]string{"vcs", "https"})).To(Succeed())
		Expect(store.RecordEvent(checkEvent("vcs", "init", model.CheckPassed))).To(Succeed())
		Expect(store.RecordEvent(checkEvent("https", "hsts", model.CheckSkipped))).To(Succeed())
		Expect(store.RecordEvent(checkEvent("vcs", "commit", model.CheckFailed))).To(Succeed())

		events, err := store.AllEvents()
		Expect(err).ToNot(HaveOccurred())
		Expect(events).To(HaveLen(4))
		Expect(events[0]).To(BeAssignableToTypeOf(&model.SessionStartEvent{}))

		vcs, err := store.EventsForChecker("vcs")
		Expect(err).ToNot(HaveOccurred())
		Expect(vcs).To(HaveLen(2))
		Expect(vcs[0].Check).To(Equal("init"))
		Expect(vcs[1].Check).To(Equal("commit"))
		Expect(vcs[1].Kind).To(Equal(model.ViolationFailure))

		summary, err := store.StopSession(false)
		Expect(err).ToNot(HaveOccurred())
		Expect(summary.TotalChecks).To(Equal(3))
		Expect(summary.FailedChecks).To(Equal(1))
		Expect(summary.Problems).To(Equal([]string{"vcs#commit"}))

		events, err = store.AllEvents()
		Expect(err).ToNot(HaveOccurred())
		Expect(events).To(BeEmpty())
	})

	It("Should keep history across sessions and reopen", func() {
		Expect(store.StartSession([]string{"vcs"})).To(Succeed())
		Expect(store.RecordEvent(checkEvent("vcs", "init", model.CheckFailed))).To(Succeed())
		_, err := store.StopSession(false)
		Expect(err).ToNot(HaveOccurred())

		Expect(store.StartSession([]string{"vcs"})).To(Succeed())
		Expect(store.RecordEvent(checkEvent("vcs", "init", model.CheckPassed))).To(Succeed())
		Expect(store.RecordEvent(checkEvent("vcs", "commit", model.CheckPassed))).To(Succeed())
		_, err = store.StopSession(false)
		Expect(err).ToNot(HaveOccurred())
		Expect(store.Close()).To(Succeed())

		store, err = NewSQLiteSessionStore(path, logger)
		Expect(err).ToNot(HaveOccurred())
		DeferCleanup(store.Close)

		history, err := store.History(10)
		Expect(err).ToNot(HaveOccurred())
		Expect(history).To(HaveLen(2))
		Expect(history[0].Summary.TotalChecks).To(Equal(2))
		Expect(history[0].Summary.Succeeded()).To(BeTrue())
		Expect(history[1].Summary.TotalChecks).To(Equal(1))
		Expect(history[1].Summary.Succeeded()).To(BeFalse())
		Expect(history[0].StartedAt).ToNot(BeZero())

		history, err = store.History(1)
		Expect(err).ToNot(HaveOccurred())
		Expect(history).To(HaveLen(1))
	})

	It("Should destroy the session when requested", func() {
		Expect(store.StartSession([]string{"vcs"})).To(Succeed())
		Expect(store.RecordEvent(checkEvent("vcs", "init", model.CheckPassed))).To(Succeed())

		summary, err := store.StopSession(true)
		Expect(err).ToNot(HaveOccurred())
		Expect(summary.TotalChecks).To(Equal(1))

		history, err := store.History(10)
		Expect(err).ToNot(HaveOccurred())
		Expect(history).To(BeEmpty())
	})

	It("Should reject an empty path", func() {
		_, err := NewSQLiteSessionStore("", logger)
		Expect(err).To(MatchError("session database path cannot be empty"))
	})
})
