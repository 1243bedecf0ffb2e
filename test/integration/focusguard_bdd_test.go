//go:build integration

package integration

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/focus_guard/internal/browser"
	"github.com/eliteGoblin/focusd/focus_guard/internal/clock"
	"github.com/eliteGoblin/focusd/focus_guard/internal/content"
	"github.com/eliteGoblin/focusd/focus_guard/internal/domain"
	"github.com/eliteGoblin/focusd/focus_guard/internal/eventlog"
	"github.com/eliteGoblin/focusd/focus_guard/internal/infra"
	"github.com/eliteGoblin/focusd/focus_guard/internal/metrics"
	"github.com/eliteGoblin/focusd/focus_guard/internal/overlay"
	"github.com/eliteGoblin/focusd/focus_guard/internal/policy"
	"github.com/eliteGoblin/focusd/focus_guard/internal/usecase"
)

const launcher = "com.android.launcher3"

type store interface {
	domain.PolicyStore
	domain.PolicyWriter
}

// harness wires the real engine, guard and overlay the same way the run
// command does, but delivers events synchronously and uses a fake clock.
type harness struct {
	store    store
	events   *eventlog.Log
	host     *infra.ConsoleOverlay
	screen   *bytes.Buffer
	source   *infra.SnapshotContent
	notifier *infra.StatusNotifier
	clock    *clock.Fake
	ctrl     *overlay.Controller
	engine   *usecase.Engine
	guard    *usecase.Guard
	service  *usecase.Service
}

func newHarness(s store) *harness {
	logger := zap.NewNop()
	h := &harness{
		store:    s,
		events:   eventlog.New(logger),
		screen:   &bytes.Buffer{},
		source:   infra.NewSnapshotContent(),
		notifier: infra.NewStatusNotifier(logger),
		clock:    clock.NewFake(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
	}
	h.host = infra.NewConsoleOverlay(h.screen)

	h.engine = usecase.NewEngine(
		usecase.EngineConfig{SelfID: "com.focusguard.app"},
		policy.NewWhitelist(),
		policy.NewLoader(s, logger),
		browser.NewExtractor(logger),
		h.source,
		h.notifier,
		h.events,
		metrics.New(),
		logger,
	)
	// Going home brings the launcher to the front, as the host would report it.
	home := infra.NewConsoleHome(h.screen, func() { h.foreground(launcher, nil) })
	h.ctrl = overlay.NewController(overlay.DefaultConfig(), h.host, home, h.clock, h.events, logger)
	h.guard = usecase.NewGuard(h.engine, h.ctrl, h.events, nil, logger)
	h.service = usecase.NewService(h.engine, h.ctrl, h.events)
	return h
}

func (h *harness) foreground(surfaceID string, root domain.ContentNode) domain.BlockDecision {
	h.source.Set(root)
	return h.guard.HandleEvent(domain.ForegroundEvent{SurfaceID: surfaceID, Timestamp: h.clock.Now()})
}

func (h *harness) messages() []string {
	var out []string
	for _, e := range h.events.ReadAll() {
		out = append(out, e.Message)
	}
	return out
}

func (h *harness) overlaysShown() int {
	return strings.Count(h.screen.String(), "[ I Understand ]")
}

var _ = Describe("FocusGuard", func() {
	var (
		tmpDir string
		prefs  *infra.FilePreferences
		h      *harness
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "focusguard-integration-*")
		Expect(err).NotTo(HaveOccurred())

		prefs = infra.NewFilePreferences(tmpDir)
		h = newHarness(prefs)
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("blocking an explicit app", func() {
		BeforeEach(func() {
			Expect(prefs.SetStringList(domain.KeyBlockedApps, []string{"com.game.x"})).To(Succeed())
			Expect(prefs.SetBool(domain.KeySessionActive, true)).To(Succeed())
		})

		It("should show the overlay and mirror the counts", func() {
			d := h.foreground("com.game.x", nil)

			Expect(d.Action).To(Equal(domain.ActionBlock))
			Expect(d.Reason).To(Equal(domain.ReasonExplicitApp))
			Expect(h.overlaysShown()).To(Equal(1))
			Expect(h.ctrl.State()).To(Equal(domain.OverlayState{Phase: domain.PhaseShowing, BlockedSurfaceID: "com.game.x"}))

			title, text := h.notifier.Current()
			Expect(title).To(ContainSubstring("Session Active"))
			Expect(text).To(Equal("Blocked: 1 app(s)"))
		})

		Context("when the user dismisses the overlay", func() {
			BeforeEach(func() {
				h.foreground("com.game.x", nil)
				Expect(h.host.Acknowledge()).To(BeTrue())
			})

			It("should return home and install the debounce lock", func() {
				Expect(h.ctrl.State().Phase).To(Equal(domain.PhaseHidden))
				Expect(h.screen.String()).To(ContainSubstring("[home]"))

				lock := h.ctrl.DebounceLock()
				Expect(lock.SurfaceID).To(Equal("com.game.x"))
				Expect(lock.ExpiresAt).To(Equal(h.clock.Now().Add(time.Second)))

				Expect(h.messages()).To(ContainElement(ContainSubstring(launcher + " -> allow (critical_whitelist)")))
			})

			It("should not interrupt again inside the debounce window", func() {
				h.clock.Advance(999 * time.Millisecond)
				d := h.foreground("com.game.x", nil)

				Expect(d.Blocked()).To(BeTrue())
				Expect(h.overlaysShown()).To(Equal(1))
				Expect(h.messages()).To(ContainElement("Debounced: com.game.x"))
			})

			It("should interrupt again once the window has elapsed", func() {
				h.clock.Advance(time.Second)
				Expect(h.ctrl.DebounceLock().SurfaceID).To(BeEmpty())

				h.foreground("com.game.x", nil)
				Expect(h.overlaysShown()).To(Equal(2))
			})

			It("should ignore a second acknowledgment", func() {
				Expect(h.host.Acknowledge()).To(BeFalse())
			})
		})

		Context("when the overlay permission is missing", func() {
			It("should stay hidden and still debounce", func() {
				h.host.Deny(true)

				d := h.foreground("com.game.x", nil)

				Expect(d.Blocked()).To(BeTrue())
				Expect(h.ctrl.State().Phase).To(Equal(domain.PhaseHidden))
				Expect(h.ctrl.Locked("com.game.x")).To(BeTrue())
				Expect(h.messages()).To(ContainElement(ContainSubstring("Overlay failed for com.game.x")))
			})
		})

		Context("when the session is turned off", func() {
			It("should allow the app on the next event", func() {
				Expect(prefs.SetBool(domain.KeySessionActive, false)).To(Succeed())

				d := h.foreground("com.game.x", nil)

				Expect(d.Action).To(Equal(domain.ActionAllow))
				Expect(h.overlaysShown()).To(BeZero())
			})
		})
	})

	Describe("blocking a website in a browser", func() {
		tree := func(url string) domain.ContentNode {
			raw := fmt.Sprintf(`{"role":"android.widget.FrameLayout","children":[
				{"role":"android.widget.TextView","text":"3 tabs"},
				{"role":"android.widget.EditText","editable":true,"text":%q}]}`, url)
			n, err := content.Decode([]byte(raw))
			Expect(err).NotTo(HaveOccurred())
			return n
		}

		BeforeEach(func() {
			Expect(prefs.SetStringList(domain.KeyBlockedBrowsers, []string{"com.browser.y"})).To(Succeed())
			Expect(prefs.SetStringList(domain.KeyBlockedWebsites, []string{"social.example"})).To(Succeed())
			Expect(prefs.SetBool(domain.KeySessionActive, true)).To(Succeed())
		})

		It("should block a matching address", func() {
			d := h.foreground("com.browser.y", tree("https://m.social.example/feed"))

			Expect(d.Action).To(Equal(domain.ActionBlock))
			Expect(d.Reason).To(Equal(domain.ReasonBlockedBrowserURL))
			Expect(d.Matched).To(Equal("social.example"))
			Expect(h.overlaysShown()).To(Equal(1))
		})

		It("should allow other addresses", func() {
			d := h.foreground("com.browser.y", tree("https://news.example/today"))

			Expect(d.Action).To(Equal(domain.ActionAllow))
			Expect(d.Reason).To(Equal(domain.ReasonDefault))
		})

		It("should allow when no content is available", func() {
			d := h.foreground("com.browser.y", nil)

			Expect(d.Action).To(Equal(domain.ActionAllow))
		})

		It("should allow a browser that is not listed", func() {
			d := h.foreground("com.other.browser", tree("https://social.example"))

			Expect(d.Action).To(Equal(domain.ActionAllow))
		})
	})

	Describe("malformed preferences", func() {
		It("should fail open to an empty blocklist", func() {
			Expect(prefs.SetRawList(domain.KeyBlockedApps, "{not json")).To(Succeed())
			Expect(prefs.SetBool(domain.KeySessionActive, true)).To(Succeed())

			d := h.foreground("com.game.x", nil)

			Expect(d.Action).To(Equal(domain.ActionAllow))
			Expect(d.Reason).To(Equal(domain.ReasonDefault))
			Expect(h.messages()).To(ContainElement(ContainSubstring("[degraded values: 1]")))
		})

		It("should fail open when the whole file is corrupt", func() {
			Expect(os.WriteFile(prefs.Path(), []byte("<<<"), 0600)).To(Succeed())

			d := h.foreground("com.game.x", nil)

			Expect(d.Action).To(Equal(domain.ActionAllow))
			Expect(h.engine.Snapshot().SystemShieldEnabled).To(BeTrue())
		})
	})

	Describe("system shield", func() {
		BeforeEach(func() {
			Expect(prefs.SetStringList(domain.KeyBlockedApps, []string{"com.android.chrome"})).To(Succeed())
			Expect(prefs.SetBool(domain.KeySessionActive, true)).To(Succeed())
		})

		It("should protect vendor components while enabled", func() {
			Expect(prefs.SetBool(domain.KeySystemShieldEnabled, true)).To(Succeed())

			d := h.foreground("com.android.chrome", nil)
			Expect(d.Reason).To(Equal(domain.ReasonShieldProtected))
		})

		It("should let the user block them while disabled", func() {
			d := h.foreground("com.android.chrome", nil)
			Expect(d.Reason).To(Equal(domain.ReasonExplicitApp))
		})
	})

	Describe("event log", func() {
		It("should keep only the newest 500 entries", func() {
			for i := 0; i < 501; i++ {
				h.foreground(fmt.Sprintf("com.app.n%03d", i), nil)
			}

			msgs := h.messages()
			Expect(msgs).To(HaveLen(eventlog.DefaultCapacity))
			Expect(msgs[0]).To(ContainSubstring("com.app.n001 "))
			Expect(msgs[len(msgs)-1]).To(ContainSubstring("com.app.n500 "))
		})

		It("should accept UI entries through the service", func() {
			Expect(h.service.AddLog("opened settings")).To(BeTrue())
			Expect(h.service.AddLog("   ")).To(BeFalse())
			Expect(h.service.Logs()).To(HaveLen(1))
			Expect(h.service.Logs()[0].Message).To(Equal("ui: opened settings"))
		})
	})

	Describe("encrypted preferences", func() {
		It("should drive the engine from a SQLCipher store", func() {
			key, err := infra.EnsureKey(infra.NewFileKeyProvider(tmpDir))
			Expect(err).NotTo(HaveOccurred())

			enc, err := infra.NewEncryptedStore(tmpDir, key)
			Expect(err).NotTo(HaveOccurred())
			defer enc.Close()

			Expect(enc.SetStringList(domain.KeyBlockedApps, []string{"com.game.x"})).To(Succeed())
			Expect(enc.SetBool(domain.KeySessionActive, true)).To(Succeed())

			eh := newHarness(enc)
			d := eh.foreground("com.game.x", nil)

			Expect(d.Reason).To(Equal(domain.ReasonExplicitApp))
			Expect(eh.overlaysShown()).To(Equal(1))
		})

		It("should refuse the database with another key", func() {
			key, err := infra.GenerateKey()
			Expect(err).NotTo(HaveOccurred())
			enc, err := infra.NewEncryptedStore(tmpDir, key)
			Expect(err).NotTo(HaveOccurred())
			Expect(enc.SetBool(domain.KeySessionActive, true)).To(Succeed())
			Expect(enc.Close()).To(Succeed())

			other, err := infra.GenerateKey()
			Expect(err).NotTo(HaveOccurred())
			_, err = infra.NewEncryptedStore(tmpDir, other)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("preference watcher", func() {
		It("should report writes from another process", func() {
			w, err := infra.NewPrefsWatcher(prefs.Path(), 20*time.Millisecond, zap.NewNop())
			Expect(err).NotTo(HaveOccurred())

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			var changes atomic.Int32
			go func() {
				defer GinkgoRecover()
				_ = w.Run(ctx, func() { changes.Add(1) })
			}()

			// Give the watcher time to subscribe before writing.
			time.Sleep(50 * time.Millisecond)
			Expect(prefs.SetBool(domain.KeySessionActive, true)).To(Succeed())

			Eventually(changes.Load, 2*time.Second, 10*time.Millisecond).Should(BeNumerically(">=", 1))
			Expect(filepath.Dir(prefs.Path())).To(Equal(tmpDir))
		})
	})
})
