// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"encoding/json"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/choria-io/platcheck/model"
	"github.com/choria-io/platcheck/model/modelmocks"
)

var _ = Describe("DirectorySessionStore", func() {
	var (
		mockctl *gomock.Controller
		logger  *modelmocks.MockLogger
		tempDir string
		store   *DirectorySessionStore
	)

	BeforeEach(func() {
		mockctl = gomock.NewController(GinkgoT())
		logger = quietLogger(mockctl)
		tempDir = GinkgoT().TempDir()

		var err error
		store, err = NewDirectorySessionStore(tempDir, logger)
		Expect(err).ToNot(HaveOccurred())
	})

	Describe("NewDirectorySessionStore", func() {
		It("Should create an absolute path from relative directory", func() {
			relStore, err := NewDirectorySessionStore("./relative/path", logger)
			Expect(err).ToNot(HaveOccurred())
			Expect(filepath.IsAbs(relStore.directory)).To(BeTrue())
		})

		It("Should clean the directory path", func() {
			dirtyStore, err := NewDirectorySessionStore("/some//path/../clean/./path", logger)
			Expect(err).ToNot(HaveOccurred())
			Expect(dirtyStore.directory).To(Equal("/some/clean/path"))
		})

		It("Should reject empty paths", func() {
			_, err := NewDirectorySessionStore("", logger)
			Expect(err).To(MatchError("session directory path cannot be empty"))
		})
	})

	Describe("StartSession", func() {
		It("Should create the directory if it doesn't exist", func() {
			newDir := filepath.Join(tempDir, "newsession")
			newStore, err := NewDirectorySessionStore(newDir, logger)
			Expect(err).ToNot(HaveOccurred())
			Expect(newDir).ToNot(BeADirectory())

			Expect(newStore.StartSession([]string{"vcs"})).To(Succeed())
			Expect(newDir).To(BeADirectory())

			events, err := newStore.AllEvents()
			Expect(err).ToNot(HaveOccurred())
			Expect(events).To(HaveLen(1))
			Expect(events[0]).To(BeAssignableToTypeOf(&model.SessionStartEvent{}))
		})
	})

	Describe("RecordEvent", func() {
		It("Should write valid events to files", func() {
			event := checkEvent("secrets", "ignore_rule", model.CheckFailed)
			Expect(store.RecordEvent(event)).To(Succeed())

			expectedFile := filepath.Join(tempDir, event.EventID+".event")
			Expect(expectedFile).To(BeARegularFile())

			data, err := os.ReadFile(expectedFile)
			Expect(err).ToNot(HaveOccurred())

			var readEvent model.CheckEvent
			Expect(json.Unmarshal(data, &readEvent)).To(Succeed())
			Expect(readEvent.Checker).To(Equal("secrets"))
			Expect(readEvent.Status).To(Equal(model.CheckFailed))
			Expect(readEvent.Kind).To(Equal(model.ViolationFailure))
		})

		It("Should fail when directory doesn't exist", func() {
			newStore, err := NewDirectorySessionStore(filepath.Join(tempDir, "nonexistent"), logger)
			Expect(err).ToNot(HaveOccurred())

			err = newStore.RecordEvent(checkEvent("vcs", "init", model.CheckPassed))
			Expect(err).To(MatchError(ContainSubstring("does not exist")))
		})

		DescribeTable("Should reject event IDs that are not ksuids",
			func(id string) {
				event := checkEvent("vcs", "init", model.CheckPassed)
				event.EventID = id

				Expect(store.RecordEvent(event)).To(MatchError(ContainSubstring("invalid event ID")))

				files, err := os.ReadDir(tempDir)
				Expect(err).ToNot(HaveOccurred())
				Expect(files).To(BeEmpty())
			},
			Entry("traversal", "../../../etc/passwd"),
			Entry("absolute", "/tmp/malicious"),
			Entry("separators", "subdir/malicious"),
			Entry("dot", "."),
			Entry("dot dot", ".."),
			Entry("empty", ""),
		)
	})

	Describe("EventsForChecker", func() {
		It("Should return events for a specific checker in time order", func() {
			Expect(store.RecordEvent(checkEvent("vcs", "init", model.CheckPassed))).To(Succeed())
			Expect(store.RecordEvent(checkEvent("https", "hsts", model.CheckPassed))).To(Succeed())
			Expect(store.RecordEvent(checkEvent("vcs", "commit", model.CheckPassed))).To(Succeed())

			events, err := store.EventsForChecker("vcs")
			Expect(err).ToNot(HaveOccurred())
			Expect(events).To(HaveLen(2))
			Expect(events[0].EventID < events[1].EventID).To(BeTrue())
			for _, e := range events {
				Expect(e.Checker).To(Equal("vcs"))
			}
		})

		It("Should return empty slice when directory doesn't exist", func() {
			newStore, err := NewDirectorySessionStore(filepath.Join(tempDir, "nonexistent"), logger)
			Expect(err).ToNot(HaveOccurred())

			events, err := newStore.EventsForChecker("vcs")
			Expect(err).ToNot(HaveOccurred())
			Expect(events).To(BeEmpty())
		})

		It("Should skip corrupted event files", func() {
			Expect(store.RecordEvent(checkEvent("vcs", "init", model.CheckPassed))).To(Succeed())
			Expect(os.WriteFile(filepath.Join(tempDir, "corrupted.event"), []byte("invalid json"), 0600)).To(Succeed())
			Expect(os.WriteFile(filepath.Join(tempDir, "unknown.event"), []byte(`{"protocol":"other"}`), 0600)).To(Succeed())

			events, err := store.EventsForChecker("vcs")
			Expect(err).ToNot(HaveOccurred())
			Expect(events).To(HaveLen(1))
		})
	})

	Describe("StopSession", func() {
		It("Should summarize and remove the directory", func() {
			Expect(store.StartSession([]string{"vcs"})).To(Succeed())
			Expect(store.RecordEvent(checkEvent("vcs", "init", model.CheckPassed))).To(Succeed())

			summary, err := store.StopSession(true)
			Expect(err).ToNot(HaveOccurred())
			Expect(summary.TotalChecks).To(Equal(1))
			Expect(summary.Succeeded()).To(BeTrue())
			Expect(tempDir).ToNot(BeADirectory())
		})
	})
})
