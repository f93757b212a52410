package stocked

import (
	"reflect"
	"testing"

	"github.com/goliatone/go-stocked/pkg/keypath"
)

type person struct {
	Name  string   `json:"name"`
	Age   int      `json:"age"`
	Roles []string `json:"roles"`
}

func TestGetAs(t *testing.T) {
	stock := New(map[string]any{
		"user":  map[string]any{"name": "ada", "age": 36, "roles": []any{"admin"}},
		"count": 3,
	})
	src := stock.Source()

	user, err := GetAs[person](src, keypath.MustParse("user"))
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	want := person{Name: "ada", Age: 36, Roles: []string{"admin"}}
	if !reflect.DeepEqual(want, user) {
		t.Fatalf("expected %+v, got %+v", want, user)
	}

	count, err := GetAs[int](src, keypath.MustParse("count"))
	if err != nil || count != 3 {
		t.Fatalf("expected direct assertion, got %d (%v)", count, err)
	}

	missing, err := GetAs[person](src, keypath.MustParse("nobody"))
	if err != nil || !reflect.DeepEqual(person{}, missing) {
		t.Fatalf("expected zero value for missing path, got %+v (%v)", missing, err)
	}

	if _, err := GetAs[int](src, keypath.MustParse("user.name")); err == nil {
		t.Fatalf("expected decode error for string into int")
	}
}

func TestWatchAs(t *testing.T) {
	stock := New(map[string]any{"user": map[string]any{"name": "ada"}})
	var seen []person
	var errs []error
	stop, err := WatchAs(stock.Source(), keypath.MustParse("user"), func(p person, err error) {
		if err != nil {
			errs = append(errs, err)
			return
		}
		seen = append(seen, p)
	})
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer stop()

	if err := stock.SetValue(keypath.MustParse("user.age"), 37); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := stock.SetValue(keypath.MustParse("user"), "not a person"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if len(seen) != 1 || seen[0].Age != 37 || seen[0].Name != "ada" {
		t.Fatalf("unexpected typed values %+v", seen)
	}
	if len(errs) != 1 {
		t.Fatalf("expected one conversion error, got %v", errs)
	}
}
