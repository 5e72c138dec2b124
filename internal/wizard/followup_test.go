package wizard

import (
	"testing"

	"github.com/hongliu-studio/contentplan/internal/models"
)

func TestShouldAskFollowUpKeywordGating(t *testing.T) {
	cases := []struct {
		name     string
		desc     string
		selector models.CardSelector
		want     bool
	}{
		{"audience missing", "一款高品质的智能手表", models.CardSelectorTargetAudience, true},
		{"audience present", "面向年轻用户的智能手表", models.CardSelectorTargetAudience, false},
		{"frequency missing", "一款高品质的智能手表", models.CardSelectorPublishFrequency, true},
		{"frequency present", "每周发布智能手表内容", models.CardSelectorPublishFrequency, false},
		{"content type missing", "一款高品质的智能手表", models.CardSelectorContentType, true},
		{"content type present", "智能手表测评和推荐", models.CardSelectorContentType, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ctx := FollowUpContext{ProductDescription: c.desc}
			if got := ShouldAskFollowUp(ctx, c.selector); got != c.want {
				t.Errorf("ShouldAskFollowUp(%q, %s) = %v, want %v", c.desc, c.selector, got, c.want)
			}
		})
	}
}

func TestFollowUpQuestionsCappedAtTwo(t *testing.T) {
	// A bare description triggers all three follow-up topics; only the two
	// highest-priority questions are returned.
	ctx := FollowUpContext{ProductDescription: "一款智能手表"}
	qs := FollowUpQuestions(ctx)
	if len(qs) != MaxFollowUps {
		t.Fatalf("expected %d follow-ups, got %d", MaxFollowUps, len(qs))
	}
	if qs[0].ID != "targetAudience" || qs[1].ID != "publishFrequency" {
		t.Errorf("expected priority order audience, frequency; got %s, %s", qs[0].ID, qs[1].ID)
	}
	for _, q := range qs {
		if q.Required {
			t.Errorf("follow-up %s should be optional", q.ID)
		}
		if q.Type != models.QuestionTypeFollowUp {
			t.Errorf("follow-up %s has type %s", q.ID, q.Type)
		}
	}
}

func TestFollowUpQuestionsContentTypePromoted(t *testing.T) {
	// Audience covered in the description frees a slot for the content-type
	// question.
	ctx := FollowUpContext{ProductDescription: "面向年轻人群的智能手表"}
	qs := FollowUpQuestions(ctx)
	if len(qs) != 2 {
		t.Fatalf("expected 2 follow-ups, got %d", len(qs))
	}
	if qs[0].ID != "publishFrequency" || qs[1].ID != "contentType" {
		t.Errorf("expected frequency then contentType, got %s, %s", qs[0].ID, qs[1].ID)
	}
}

func TestFollowUpQuestionsNoneNeeded(t *testing.T) {
	ctx := FollowUpContext{
		ProductDescription: "面向年轻用户，每周发布智能手表测评",
	}
	if qs := FollowUpQuestions(ctx); len(qs) != 0 {
		t.Errorf("expected no follow-ups for a complete description, got %d", len(qs))
	}
}

func TestStyleBasedFollowUps(t *testing.T) {
	ctx := FollowUpContext{}

	techOnly := StyleBasedFollowUps([]string{"tech_future"}, ctx)
	if len(techOnly) != 1 || techOnly[0].ID != "techDetails" {
		t.Errorf("expected techDetails follow-up, got %v", techOnly)
	}

	xhs := StyleBasedFollowUps([]string{"xiaohongshu"}, ctx)
	if len(xhs) != 1 || xhs[0].ID != "visualStyle" {
		t.Errorf("expected visualStyle follow-up, got %v", xhs)
	}

	// The visual-style question is suppressed when looks are already a
	// selling point.
	suppressed := StyleBasedFollowUps([]string{"xiaohongshu"}, FollowUpContext{SellingPoints: []string{"颜值"}})
	if len(suppressed) != 0 {
		t.Errorf("expected no follow-up when 颜值 is a selling point, got %v", suppressed)
	}

	none := StyleBasedFollowUps([]string{"morandi"}, ctx)
	if len(none) != 0 {
		t.Errorf("expected no style follow-ups for morandi, got %v", none)
	}
}
