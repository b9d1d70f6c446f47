package postgres

import "planloom/internal/domain"

// Assembly of expanded entity graphs from flat query results. Kept as pure
// grouping functions so the shape logic is testable without a database.

type tagLink struct {
	OwnerID int64
	Tag     domain.Tag
}

func groupReminderTemplates(rts []domain.ReminderTemplate) map[int64][]domain.ReminderTemplate {
	out := make(map[int64][]domain.ReminderTemplate)
	for _, rt := range rts {
		out[rt.EventTemplateID] = append(out[rt.EventTemplateID], rt)
	}
	return out
}

func groupReminders(rs []domain.Reminder) map[int64][]domain.Reminder {
	out := make(map[int64][]domain.Reminder)
	for _, r := range rs {
		out[r.EventID] = append(out[r.EventID], r)
	}
	return out
}

func groupTagLinks(links []tagLink) map[int64][]domain.Tag {
	out := make(map[int64][]domain.Tag)
	for _, l := range links {
		out[l.OwnerID] = append(out[l.OwnerID], l.Tag)
	}
	return out
}

// assembleTemplateGraph groups the flat per-level rows of one project
// template under their parents, preserving query order within each level.
func assembleTemplateGraph(pt domain.ProjectTemplate, ets []domain.EventTemplate, rts []domain.ReminderTemplate, links []tagLink) domain.ProjectTemplateGraph {
	byET := groupReminderTemplates(rts)
	tagsByET := groupTagLinks(links)

	graph := domain.ProjectTemplateGraph{ProjectTemplate: pt}
	for _, et := range ets {
		if et.ProjectTemplateID != pt.ID {
			continue
		}
		graph.EventTemplates = append(graph.EventTemplates, domain.EventTemplateGraph{
			EventTemplate: et,
			Reminders:     byET[et.ID],
			Tags:          tagsByET[et.ID],
		})
	}
	return graph
}

func assembleProjectGraph(p domain.Project, events []domain.Event, rs []domain.Reminder, links []tagLink) domain.ProjectGraph {
	byEvent := groupReminders(rs)
	tagsByEvent := groupTagLinks(links)

	graph := domain.ProjectGraph{Project: p}
	for _, ev := range events {
		if ev.ProjectID != p.ID {
			continue
		}
		graph.Events = append(graph.Events, domain.EventGraph{
			Event:     ev,
			Reminders: byEvent[ev.ID],
			Tags:      tagsByEvent[ev.ID],
		})
	}
	return graph
}

func assembleEventGraph(ev domain.Event, rs []domain.Reminder, tags []domain.Tag) domain.EventGraph {
	return domain.EventGraph{Event: ev, Reminders: rs, Tags: tags}
}
