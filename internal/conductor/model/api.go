package model

// SubmitRequest is the body of POST /submit.
type SubmitRequest struct {
	Solution *string `json:"solution" binding:"required"`
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Stage Stage `json:"stage"`
}

// AppInfo describes the application under test, as returned by GET /get_app.
type AppInfo struct {
	AppName      string `json:"app_name"`
	Namespace    string `json:"namespace"`
	Descriptions string `json:"descriptions"`
}

// ProblemResponse is the body of GET /get_problem.
type ProblemResponse struct {
	ProblemID string `json:"problem_id"`
}
