package reconciler

import (
	"context"
	"errors"
	"sync"
	"time"

	workloadv1beta1 "github.com/BuoyantIO/kubecon-controller/api/v1beta1"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	"k8s.io/client-go/tools/record"
	clocktesting "k8s.io/utils/clock/testing"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"
)

// recordingWriter counts status writes and fails the first failures of them
// before delegating to next.
type recordingWriter struct {
	mu        sync.Mutex
	next      StatusWriter
	failures  int
	calls     int
	succeeded int
	patches   []StatusPatch
}

func (w *recordingWriter) PatchStatus(ctx context.Context, namespace, name string, patch StatusPatch) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	w.patches = append(w.patches, patch)
	if w.failures > 0 {
		w.failures--
		return errors.New("store unavailable")
	}
	if w.next != nil {
		if err := w.next.PatchStatus(ctx, namespace, name, patch); err != nil {
			return err
		}
	}
	w.succeeded++
	return nil
}

func newScheme() *runtime.Scheme {
	s := runtime.NewScheme()
	utilruntime.Must(workloadv1beta1.AddToScheme(s))
	return s
}

var _ = Describe("StatusReconciler", func() {
	var (
		ctx      context.Context
		now      time.Time
		c        client.Client
		writer   *recordingWriter
		recorder *record.FakeRecorder
		r        *StatusReconciler
		key      types.NamespacedName
	)

	build := func(objs ...client.Object) {
		scheme := newScheme()
		c = fake.NewClientBuilder().
			WithScheme(scheme).
			WithObjects(objs...).
			WithStatusSubresource(&workloadv1beta1.ExternalWorkload{}).
			Build()
		recorder = record.NewFakeRecorder(10)
		r = NewStatusReconciler(c, scheme, recorder, nil)
		writer = &recordingWriter{next: r.Writer}
		r.Writer = writer
		r.Clock = clocktesting.NewFakePassiveClock(now)
	}

	fetch := func() *workloadv1beta1.ExternalWorkload {
		w := &workloadv1beta1.ExternalWorkload{}
		Expect(c.Get(ctx, key, w)).To(Succeed())
		return w
	}

	BeforeEach(func() {
		ctx = context.Background()
		now = time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
		key = types.NamespacedName{Namespace: "ns", Name: "w"}
	})

	Context("when the workload has no conditions", func() {
		BeforeEach(func() {
			w := workloadv1beta1.NewExternalWorkload("w", "ns", 80)
			w.Status = &workloadv1beta1.ExternalWorkloadStatus{Conditions: []workloadv1beta1.WorkloadCondition{}}
			build(w)
		})

		It("writes a single Ready condition and then stops writing", func() {
			result, err := r.Reconcile(ctx, ctrl.Request{NamespacedName: key})
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(ctrl.Result{}))
			Expect(writer.calls).To(Equal(1))

			conditions := fetch().Conditions()
			Expect(conditions).To(HaveLen(1))
			cond := conditions[0]
			Expect(cond.Type).To(Equal(workloadv1beta1.WorkloadReady))
			Expect(cond.Status).To(Equal(workloadv1beta1.ConditionTrue))
			Expect(cond.Reason).To(Equal(workloadv1beta1.ReasonWorkloadCreated))
			Expect(cond.LastProbeTime.IsZero()).To(BeFalse())
			Expect(cond.LastTransitionTime.IsZero()).To(BeFalse())
			Expect(cond.LastProbeTime.Time.Equal(now)).To(BeTrue())
			Expect(cond.LastTransitionTime.Time.Equal(now)).To(BeTrue())

			result, err = r.Reconcile(ctx, ctrl.Request{NamespacedName: key})
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(ctrl.Result{}))
			Expect(writer.calls).To(Equal(1))
			Expect(fetch().Conditions()).To(HaveLen(1))
		})

		It("records a WorkloadReady event", func() {
			_, err := r.Reconcile(ctx, ctrl.Request{NamespacedName: key})
			Expect(err).NotTo(HaveOccurred())
			Expect(recorder.Events).To(Receive(ContainSubstring(EventReasonWorkloadReady)))
		})

		It("sends only the status stanza in the patch", func() {
			_, err := r.Reconcile(ctx, ctrl.Request{NamespacedName: key})
			Expect(err).NotTo(HaveOccurred())
			Expect(writer.patches).To(HaveLen(1))
			Expect(writer.patches[0].Status.Conditions).To(HaveLen(1))

			w := fetch()
			Expect(w.Spec.MeshTLS.Identity).To(Equal("w.ns.serviceaccount.identity.linkerd.cluster.local"))
			Expect(w.Spec.Ports).To(HaveLen(1))
		})

		It("counts the patched outcome", func() {
			before := testutil.ToFloat64(reconcileTotal.WithLabelValues(resultPatched))
			_, err := r.Reconcile(ctx, ctrl.Request{NamespacedName: key})
			Expect(err).NotTo(HaveOccurred())
			Expect(testutil.ToFloat64(reconcileTotal.WithLabelValues(resultPatched))).To(Equal(before + 1))
		})
	})

	Context("when the workload has no status at all", func() {
		BeforeEach(func() {
			build(workloadv1beta1.NewExternalWorkload("w", "ns"))
		})

		It("creates the status with a Ready condition", func() {
			_, err := r.Reconcile(ctx, ctrl.Request{NamespacedName: key})
			Expect(err).NotTo(HaveOccurred())

			w := fetch()
			Expect(w.Status).NotTo(BeNil())
			Expect(w.HasReadyCondition()).To(BeTrue())
		})
	})

	Context("when the workload has other conditions", func() {
		BeforeEach(func() {
			w := workloadv1beta1.NewExternalWorkload("w", "ns")
			w.Status = &workloadv1beta1.ExternalWorkloadStatus{
				Conditions: []workloadv1beta1.WorkloadCondition{
					{Type: "Synced", Status: workloadv1beta1.ConditionTrue, Reason: "Observed"},
				},
			}
			build(w)
		})

		It("appends Ready after the existing conditions", func() {
			_, err := r.Reconcile(ctx, ctrl.Request{NamespacedName: key})
			Expect(err).NotTo(HaveOccurred())

			conditions := fetch().Conditions()
			Expect(conditions).To(HaveLen(2))
			Expect(conditions[0].Type).To(Equal(workloadv1beta1.WorkloadConditionType("Synced")))
			Expect(conditions[0].Reason).To(Equal("Observed"))
			Expect(conditions[1].Type).To(Equal(workloadv1beta1.WorkloadReady))
		})
	})

	DescribeTable("leaves workloads with a Ready condition untouched",
		func(status workloadv1beta1.WorkloadConditionStatus) {
			w := workloadv1beta1.NewExternalWorkload("w", "ns")
			w.Status = &workloadv1beta1.ExternalWorkloadStatus{
				Conditions: []workloadv1beta1.WorkloadCondition{
					{Type: workloadv1beta1.WorkloadReady, Status: status},
				},
			}
			build(w)

			result, err := r.Reconcile(ctx, ctrl.Request{NamespacedName: key})
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(ctrl.Result{}))
			Expect(writer.calls).To(BeZero())
			Expect(recorder.Events).NotTo(Receive())

			action, err := r.ReconcileWorkload(ctx, fetch())
			Expect(err).NotTo(HaveOccurred())
			Expect(action.Kind).To(Equal(AwaitChange))
		},
		Entry("True", workloadv1beta1.ConditionTrue),
		Entry("False", workloadv1beta1.ConditionFalse),
		Entry("Unknown", workloadv1beta1.ConditionUnknown),
	)

	Context("when the status write fails once", func() {
		BeforeEach(func() {
			w := workloadv1beta1.NewExternalWorkload("w", "ns")
			w.Status = &workloadv1beta1.ExternalWorkloadStatus{Conditions: []workloadv1beta1.WorkloadCondition{}}
			build(w)
			writer.failures = 1
		})

		It("requeues after the fixed backoff and succeeds on retry", func() {
			result, err := r.Reconcile(ctx, ctrl.Request{NamespacedName: key})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.RequeueAfter).To(Equal(RetryBackoff))
			Expect(RetryBackoff).To(Equal(60 * time.Second))
			Expect(fetch().Conditions()).To(BeEmpty())

			result, err = r.Reconcile(ctx, ctrl.Request{NamespacedName: key})
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(ctrl.Result{}))

			Expect(writer.calls).To(Equal(2))
			Expect(writer.succeeded).To(Equal(1))
			Expect(fetch().Conditions()).To(HaveLen(1))
		})

		It("reports a WriteFailedError from ReconcileWorkload", func() {
			action, err := r.ReconcileWorkload(ctx, fetch())
			Expect(action).To(Equal(RequeueAfter(RetryBackoff)))

			var writeErr *WriteFailedError
			Expect(errors.As(err, &writeErr)).To(BeTrue())
			Expect(writeErr.Namespace).To(Equal("ns"))
			Expect(writeErr.Name).To(Equal("w"))
			Expect(writeErr.Unwrap()).To(MatchError("store unavailable"))
			Expect(recorder.Events).NotTo(Receive())
		})
	})

	Context("when the workload has no namespace", func() {
		BeforeEach(func() {
			build()
		})

		It("fails with MissingField and does not write", func() {
			w := workloadv1beta1.NewExternalWorkload("w", "")

			action, err := r.ReconcileWorkload(ctx, w)
			Expect(err).To(MatchError(ErrMissingField))
			Expect(err.Error()).To(ContainSubstring(".metadata.namespace"))
			Expect(action.Kind).To(Equal(NoRequeue))
			Expect(writer.calls).To(BeZero())
		})
	})

	Context("when the workload does not exist", func() {
		BeforeEach(func() {
			build()
		})

		It("does nothing", func() {
			result, err := r.Reconcile(ctx, ctrl.Request{NamespacedName: key})
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(ctrl.Result{}))
			Expect(writer.calls).To(BeZero())
		})
	})
})

var _ = Describe("StatusReconciler error policy", func() {
	var (
		ctx context.Context
		r   *StatusReconciler
	)

	BeforeEach(func() {
		ctx = context.Background()
		scheme := newScheme()
		c := fake.NewClientBuilder().WithScheme(scheme).Build()
		r = NewStatusReconciler(c, scheme, record.NewFakeRecorder(10), nil)
		r.Writer = &recordingWriter{}
	})

	It("makes a workload without namespace a terminal failure", func() {
		before := testutil.ToFloat64(reconcileTotal.WithLabelValues(resultInvalid))

		action, err := r.ReconcileWorkload(ctx, workloadv1beta1.NewExternalWorkload("w", ""))
		Expect(err).To(MatchError(ErrMissingField))

		result, err := r.resultFor(ctx, action, err)
		Expect(result).To(Equal(ctrl.Result{}))
		Expect(errors.Is(err, reconcile.TerminalError(nil))).To(BeTrue())
		Expect(errors.Is(err, ErrMissingField)).To(BeTrue())
		Expect(testutil.ToFloat64(reconcileTotal.WithLabelValues(resultInvalid))).To(Equal(before + 1))
	})

	It("requeues failed writes after the fixed backoff without an error", func() {
		before := testutil.ToFloat64(reconcileTotal.WithLabelValues(resultWriteFailed))

		writeErr := &WriteFailedError{Namespace: "ns", Name: "w", Err: errors.New("store unavailable")}
		result, err := r.resultFor(ctx, RequeueAfter(RetryBackoff), writeErr)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.RequeueAfter).To(Equal(RetryBackoff))
		Expect(testutil.ToFloat64(reconcileTotal.WithLabelValues(resultWriteFailed))).To(Equal(before + 1))
	})

	It("passes successful outcomes through", func() {
		result, err := r.resultFor(ctx, Action{Kind: AwaitChange}, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(result).To(Equal(ctrl.Result{}))
	})
})
