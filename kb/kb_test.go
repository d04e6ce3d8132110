package kb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/signalsfoundry/sar-sensor-model/core"
	"github.com/signalsfoundry/sar-sensor-model/geodesy"
	"github.com/signalsfoundry/sar-sensor-model/model"
)

var t0 = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// twoBurstProduct is a minimal SLC product with two overlapping bursts.
func twoBurstProduct() *model.ImageMetadata {
	imd := &model.ImageMetadata{ProductType: "SLC", Mission: "SENTINEL-1A"}
	imd.SetGeometry(model.GeometrySAR, model.SARParam{
		Orbits: []model.OrbitRecord{
			{Time: t0, Position: geodesy.Vec3{X: 7000000}, Velocity: geodesy.Vec3{Y: 7500}},
			{Time: t0.Add(10 * time.Second), Position: geodesy.Vec3{X: 6999625, Y: 75000}, Velocity: geodesy.Vec3{X: -75, Y: 7499}},
		},
		BurstRecords: []model.BurstRecord{
			{StartLine: 0, EndLine: 999, StartSample: 0, EndSample: 499, AzimuthStartTime: t0, AzimuthStopTime: t0.Add(999 * 2 * time.Millisecond)},
			{StartLine: 1000, EndLine: 1999, StartSample: 0, EndSample: 499, AzimuthStartTime: t0.Add(1900 * time.Millisecond), AzimuthStopTime: t0.Add(1900*time.Millisecond + 999*2*time.Millisecond)},
		},
		NearRangeTime:       4.7e-3,
		RangeSamplingRate:   2e7,
		AzimuthTimeInterval: 2 * time.Millisecond,
		RightLookingFlag:    true,
	})
	imd.SetGeometry(model.GeometryGCP, model.GCPParam{GCPs: []model.GCP{
		{ID: "1", Row: 10, Col: 10},
		{ID: "2", Row: 1500, Col: 10},
	}})
	return imd
}

func TestAddAndGetProduct(t *testing.T) {
	store := NewProductStore()
	imd := twoBurstProduct()
	if err := store.AddProduct("p1", imd); err != nil {
		t.Fatalf("AddProduct error: %v", err)
	}

	// The store keeps its own copy.
	imd.Mission = "changed"

	got, err := store.GetProduct("p1")
	if err != nil {
		t.Fatalf("GetProduct error: %v", err)
	}
	if got.Mission != "SENTINEL-1A" {
		t.Fatalf("GetProduct mission = %q, want SENTINEL-1A", got.Mission)
	}

	got.ProductType = "GRD"
	again, _ := store.GetProduct("p1")
	if again.ProductType != "SLC" {
		t.Fatalf("GetProduct returned shared metadata")
	}
}

func TestAddProductDuplicate(t *testing.T) {
	store := NewProductStore()
	if err := store.AddProduct("p1", twoBurstProduct()); err != nil {
		t.Fatalf("first AddProduct error: %v", err)
	}
	if err := store.AddProduct("p1", twoBurstProduct()); !errors.Is(err, ErrProductExists) {
		t.Fatalf("expected ErrProductExists, got %v", err)
	}
	if err := store.AddProduct("p2", nil); err == nil {
		t.Fatalf("expected nil metadata to be rejected")
	}
}

func TestMissingProduct(t *testing.T) {
	store := NewProductStore()
	if _, err := store.GetProduct("missing"); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
	err := store.UpdateProduct("missing", func(*model.ImageMetadata) {
		t.Fatalf("update applied to a missing product")
	})
	if !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestListProductIDs(t *testing.T) {
	store := NewProductStore()
	for _, id := range []string{"p-2", "p-0", "p-1"} {
		if err := store.AddProduct(id, twoBurstProduct()); err != nil {
			t.Fatalf("AddProduct error: %v", err)
		}
	}
	got := store.ListProductIDs()
	want := []string{"p-0", "p-1", "p-2"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("ListProductIDs = %v, want %v", got, want)
	}
}

func TestUpdateProductFromSensorModel(t *testing.T) {
	store := NewProductStore()
	if err := store.AddProduct("p1", twoBurstProduct()); err != nil {
		t.Fatalf("AddProduct error: %v", err)
	}

	var events []Event
	unsubscribe := store.Subscribe(func(e Event) {
		events = append(events, e)
	})

	imd, _ := store.GetProduct("p1")
	m, err := core.NewSensorModelFromMetadata(context.Background(), imd)
	if err != nil {
		t.Fatalf("NewSensorModelFromMetadata: %v", err)
	}
	if _, ok := m.Deburst(true); !ok {
		t.Fatalf("Deburst reported no change")
	}
	if err := store.UpdateProduct("p1", m.UpdateImageMetadata); err != nil {
		t.Fatalf("UpdateProduct error: %v", err)
	}

	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Type != EventProductUpdated || events[0].ProductID != "p1" {
		t.Fatalf("unexpected event %+v", events[0])
	}
	sar, ok := events[0].Metadata.SAR()
	if !ok || len(sar.BurstRecords) != 1 {
		t.Fatalf("event metadata not debursted: %+v", sar.BurstRecords)
	}

	stored, _ := store.GetProduct("p1")
	sar, _ = stored.SAR()
	if len(sar.BurstRecords) != 1 {
		t.Fatalf("stored product has %d bursts, want 1", len(sar.BurstRecords))
	}

	unsubscribe()
	if err := store.UpdateProduct("p1", func(imd *model.ImageMetadata) { imd.Mission = "S1B" }); err != nil {
		t.Fatalf("UpdateProduct error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("unsubscribed callback still notified")
	}
}

func TestUnsubscribeKeepsOtherSubscribers(t *testing.T) {
	store := NewProductStore()
	var first, second int
	unsubFirst := store.Subscribe(func(Event) { first++ })
	store.Subscribe(func(Event) { second++ })

	unsubFirst()
	unsubFirst()

	if err := store.AddProduct("p1", twoBurstProduct()); err != nil {
		t.Fatalf("AddProduct error: %v", err)
	}
	if first != 0 || second != 1 {
		t.Fatalf("notifications first=%d second=%d, want 0 and 1", first, second)
	}
}

func TestConcurrentAccess(t *testing.T) {
	store := NewProductStore()
	if err := store.AddProduct("p1", twoBurstProduct()); err != nil {
		t.Fatalf("AddProduct error: %v", err)
	}

	var wg sync.WaitGroup
	// Concurrent readers/writers
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = store.GetProduct("p1")
			_ = store.ListProductIDs()
		}()
		go func() {
			defer wg.Done()
			_ = store.UpdateProduct("p1", func(imd *model.ImageMetadata) {
				imd.Mission = fmt.Sprintf("m-%d", i)
			})
		}()
	}
	wg.Wait()
}
