package handlers

import (
	"github.com/gorilla/mux"
)

// RegisterRoutes mounts the progression API on r. Callers add auth and
// other middleware on r beforehand.
func RegisterRoutes(r *mux.Router, heroes *HeroHandler, quests *QuestHandler, families *FamilyHandler, tasks *TaskHandler) {
	r.HandleFunc("/heroes/{heroID}", heroes.GetProfile).Methods("GET")
	r.HandleFunc("/heroes/{heroID}/badges", heroes.GetBadges).Methods("GET")
	r.HandleFunc("/heroes/{heroID}/badges/progress", heroes.GetBadgeProgress).Methods("GET")
	r.HandleFunc("/heroes/{heroID}/badges/evaluate", heroes.EvaluateBadges).Methods("POST")
	r.HandleFunc("/heroes/{heroID}/xp-log", heroes.GetXPLog).Methods("GET")
	r.HandleFunc("/heroes/{heroID}/completions", heroes.GetCompletions).Methods("GET")
	r.HandleFunc("/heroes/{heroID}/completions/today", heroes.GetCompletionsToday).Methods("GET")
	r.HandleFunc("/heroes/{heroID}/quest-stats", heroes.GetQuestStats).Methods("GET")
	r.HandleFunc("/heroes/{heroID}/tasks", tasks.ListHeroTasks).Methods("GET")
	r.HandleFunc("/heroes/{heroID}/tasks/{taskID}/complete", heroes.CompleteTask).Methods("POST")

	r.HandleFunc("/families/{familyID}/summary", families.GetSummary).Methods("GET")
	r.HandleFunc("/families/{familyID}/tasks", tasks.CreateTask).Methods("POST")
	r.HandleFunc("/families/{familyID}/tasks", tasks.ListFamilyTasks).Methods("GET")
	r.HandleFunc("/families/{familyID}/quests", quests.CreateQuest).Methods("POST")
	r.HandleFunc("/families/{familyID}/quests", quests.ListFamilyQuests).Methods("GET")

	r.HandleFunc("/tasks/{taskID}", tasks.GetTask).Methods("GET")
	r.HandleFunc("/tasks/{taskID}", tasks.UpdateTask).Methods("PATCH")
	r.HandleFunc("/tasks/{taskID}", tasks.DeleteTask).Methods("DELETE")

	r.HandleFunc("/quests/{questID}", quests.GetQuest).Methods("GET")
	r.HandleFunc("/quests/{questID}", quests.DeleteQuest).Methods("DELETE")
	r.HandleFunc("/quests/{questID}/join", quests.JoinQuest).Methods("POST")
	r.HandleFunc("/quests/{questID}/leave", quests.LeaveQuest).Methods("POST")
	r.HandleFunc("/quests/{questID}/complete", quests.CompleteQuest).Methods("POST")

	r.HandleFunc("/levels", families.GetLevels).Methods("GET")
	r.HandleFunc("/badges", families.GetBadgeCatalog).Methods("GET")
}
