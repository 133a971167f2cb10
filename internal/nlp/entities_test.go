package nlp

import (
	"reflect"
	"testing"

	"github.com/BTreeMap/Simsar/internal/models"
)

func TestGazetteerFindOrdersByOccurrence(t *testing.T) {
	got := Locations.Find("عايز شقة في مدينة نصر أو المعادي")
	want := []string{"مدينة نصر", "المعادي"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Find() = %v, want %v", got, want)
	}

	got = Locations.Find("بين المعادي و 6 أكتوبر")
	want = []string{"المعادي", "6 أكتوبر"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Find() = %v, want %v", got, want)
	}
}

func TestGazetteerSuppressesNestedMatches(t *testing.T) {
	g := Words("نصر", "مدينة نصر")
	got := g.Find("ساكن في مدينة نصر")
	if !reflect.DeepEqual(got, []string{"مدينة نصر"}) {
		t.Errorf("Find() = %v", got)
	}
}

func TestGazetteerLatinForms(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"I want a Villa please", "فيلا"},
		{"عايز apartment", "شقة"},
		{"عندكم شقه؟", "شقة"},
		{"محلات للايجار", "محل"},
	}
	for _, tt := range tests {
		got, ok := PropertyTypeSynonyms.First(tt.input)
		if !ok || got != tt.want {
			t.Errorf("First(%q) = (%q, %v), want %q", tt.input, got, ok, tt.want)
		}
	}
	if _, ok := PropertyTypeSynonyms.First("مفيش حاجة"); ok {
		t.Error("expected no property type")
	}
}

func TestGazetteerExtractorPrimaryPass(t *testing.T) {
	x := NewGazetteerExtractor()
	ents := x.Extract("عايز شقة في المعادي بميزانية 500 الف فيها حديقة ومسبح")

	checks := map[EntityKind][]string{
		EntityLocation:     {"المعادي"},
		EntityPropertyType: {"شقة"},
		EntityMoney:        {"500 ألف جنيه"},
		EntityFeature:      {"حديقة", "مسبح"},
	}
	for kind, want := range checks {
		if got := ents[kind]; !reflect.DeepEqual(got, want) {
			t.Errorf("%s = %v, want %v", kind, got, want)
		}
	}
	if ents.Has(EntityNumber) {
		t.Errorf("NUMBER should only come from the fallback pass, got %v", ents[EntityNumber])
	}
}

func TestGazetteerExtractorCounts(t *testing.T) {
	x := NewGazetteerExtractor()
	tests := []struct {
		input string
		kind  EntityKind
		want  string
	}{
		{"شقة 3 غرف", EntityBedrooms, "3"},
		{"4 اوض وصالة", EntityBedrooms, "4"},
		{"apartment with 2 bedrooms", EntityBedrooms, "2"},
		{"فيها 2 حمام", EntityBathrooms, "2"},
		{"مساحة 150", EntityArea, "150"},
		{"شقة 120 متر", EntityArea, "120"},
	}
	for _, tt := range tests {
		if got := x.Extract(tt.input).First(tt.kind); got != tt.want {
			t.Errorf("Extract(%q)[%s] = %q, want %q", tt.input, tt.kind, got, tt.want)
		}
	}
}

func TestGazetteerExtractorPerson(t *testing.T) {
	x := NewGazetteerExtractor()
	if got := x.Extract("اسمي أحمد ورقمي 01012345678").First(EntityPerson); got != "أحمد" {
		t.Errorf("PERSON = %q, want أحمد", got)
	}
	if got := x.Extract("أنا مع حضرتك").First(EntityPerson); got != "" {
		t.Errorf("short names must be ignored, got %q", got)
	}
	if got := x.Extract("البيانات كاملة").First(EntityPerson); got != "" {
		t.Errorf("intro word inside another word must not match, got %q", got)
	}
}

func TestGazetteerExtractorFallbackPass(t *testing.T) {
	x := NewGazetteerExtractor()
	ents := x.Extract("عايز حاجة في الهرم ب 3")
	if got := ents[EntityLocation]; !reflect.DeepEqual(got, []string{"الهرم"}) {
		t.Errorf("LOCATION = %v", got)
	}
	if got := ents[EntityNumber]; !reflect.DeepEqual(got, []string{"3"}) {
		t.Errorf("NUMBER = %v", got)
	}

	if ents := x.Extract("السعر 900 ريال"); ents.First(EntityMoney) != "900 ريال" {
		t.Errorf("MONEY = %v", ents[EntityMoney])
	}
	if ents := x.Extract("hello"); len(ents) != 0 {
		t.Errorf("expected empty entities, got %v", ents)
	}
}

func TestExtractPreferences(t *testing.T) {
	p := ExtractPreferences(nil, "عايز شقة في المعادي بميزانية 500 الف فيها حديقة ومسبح")
	want := models.UserProfile{
		Location:     "المعادي",
		Budget:       "500 ألف جنيه",
		PropertyType: "شقة",
		Features:     []string{"حديقة", "مسبح"},
	}
	if !reflect.DeepEqual(p, want) {
		t.Errorf("ExtractPreferences() = %+v, want %+v", p, want)
	}

	if p := ExtractPreferences(nil, "فيلا 5 غرف"); p.Bedrooms != "5" {
		t.Errorf("bedrooms = %q", p.Bedrooms)
	}
}

type stubExtractor Entities

func (s stubExtractor) Extract(string) Entities { return Entities(s) }

func TestExtractPreferencesNumberNeedsRoomKeyword(t *testing.T) {
	x := stubExtractor{EntityNumber: {"3"}}
	if p := ExtractPreferences(x, "عندي 3 عيال"); p.Bedrooms != "" {
		t.Errorf("bedrooms should stay empty without a room keyword, got %q", p.Bedrooms)
	}
	if p := ExtractPreferences(x, "عايز 3 في الغرفة"); p.Bedrooms != "3" {
		t.Errorf("bedrooms = %q, want 3", p.Bedrooms)
	}
}

func TestSlotScanner(t *testing.T) {
	s := NewSlotScanner()
	p := s.Scan("عايز villa في الشيخ زايد بـ 5 مليون")
	if p.Location != "الشيخ زايد" || p.Budget != "5 مليون جنيه" || p.PropertyType != "فيلا" {
		t.Errorf("Scan() = %+v", p)
	}
	if p := s.Scan("مرحبا"); !p.IsEmpty() {
		t.Errorf("expected empty scan, got %+v", p)
	}
}
